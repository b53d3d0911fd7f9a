// Package seed 把示例数据集写入托管 GraphQL 服务背后的 Neo4j 数据库（Bolt 协议）。
//
// 约束：所有语句都是 MERGE，重复执行不会产生重复节点或关系。
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed movies.yaml
var defaultDataset []byte

type Movie struct {
	Title    string `yaml:"title"`
	Released int    `yaml:"released"`
	Tagline  string `yaml:"tagline"`
}

type Person struct {
	Name string `yaml:"name"`
	Born int    `yaml:"born"`
}

type ActedIn struct {
	Movie  string   `yaml:"movie"`
	Person string   `yaml:"person"`
	Roles  []string `yaml:"roles"`
}

type Directed struct {
	Movie  string `yaml:"movie"`
	Person string `yaml:"person"`
}

type Dataset struct {
	Movies   []Movie    `yaml:"movies"`
	People   []Person   `yaml:"people"`
	ActedIn  []ActedIn  `yaml:"acted_in"`
	Directed []Directed `yaml:"directed"`
}

// Default 返回内置的示例数据集。
func Default() Dataset {
	ds, err := Parse(defaultDataset)
	if err != nil {
		panic(fmt.Sprintf("seed: 内置数据集无效：%v", err))
	}
	return ds
}

// Load 读取 YAML 数据集文件。
func Load(path string) (Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("读取数据集失败：%w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil && !errors.Is(err, io.EOF) {
		return Dataset{}, fmt.Errorf("解析数据集失败：%w", err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate 检查必填字段，以及关系引用的电影/人物都在数据集中。
func (ds Dataset) Validate() error {
	titles := make(map[string]bool, len(ds.Movies))
	for i, m := range ds.Movies {
		if strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("movies[%d].title 不能为空", i)
		}
		titles[m.Title] = true
	}
	names := make(map[string]bool, len(ds.People))
	for i, p := range ds.People {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("people[%d].name 不能为空", i)
		}
		names[p.Name] = true
	}
	check := func(kind string, i int, movie, person string) error {
		if !titles[movie] {
			return fmt.Errorf("%s[%d] 引用了未定义的电影 %q", kind, i, movie)
		}
		if !names[person] {
			return fmt.Errorf("%s[%d] 引用了未定义的人物 %q", kind, i, person)
		}
		return nil
	}
	for i, r := range ds.ActedIn {
		if err := check("acted_in", i, r.Movie, r.Person); err != nil {
			return err
		}
	}
	for i, r := range ds.Directed {
		if err := check("directed", i, r.Movie, r.Person); err != nil {
			return err
		}
	}
	return nil
}
