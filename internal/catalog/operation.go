// Package catalog 是固定的 GraphQL operation 目录：每个 operation 是一份具名文档，
// 启动时用 gqlparser 对照内置 schema 校验。
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/John-Robertt/moviegraph/internal/graphql"
)

type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Operation 描述一份具名文档。
//
// 约束：
// - Name 与文档里的 operation name 一致（也是发给服务端的 operationName）
// - Variables 与文档的变量定义一一对应
// - Field 是 data 中承载结果的顶层字段
type Operation struct {
	Name      string
	Kind      Kind
	Document  string
	Variables []string
	Field     string
}

func (o Operation) declares(name string) bool {
	for _, v := range o.Variables {
		if v == name {
			return true
		}
	}
	return false
}

// Registry 是 operation 的只读注册表（按 name 索引）。
type Registry struct {
	byName map[string]Operation
}

func NewRegistry(ops ...Operation) (Registry, error) {
	byName := make(map[string]Operation, len(ops))
	for _, op := range ops {
		name := strings.TrimSpace(op.Name)
		if name == "" {
			return Registry{}, fmt.Errorf("operation.Name 不能为空")
		}
		if strings.TrimSpace(op.Document) == "" {
			return Registry{}, fmt.Errorf("operation %q 的文档为空", name)
		}
		if op.Kind != KindQuery && op.Kind != KindMutation {
			return Registry{}, fmt.Errorf("operation %q 的 kind 非法：%q", name, op.Kind)
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 operation：%q", name)
		}
		byName[name] = op
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Operation, bool) {
	if r.byName == nil {
		return Operation{}, false
	}
	op, ok := r.byName[name]
	return op, ok
}

// MustGet 只用于固定目录中的名字；找不到说明是编程错误。
func (r Registry) MustGet(name string) Operation {
	op, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("catalog: 未注册的 operation %q", name))
	}
	return op
}

// Names 返回按字典序排列的全部 operation 名。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Request 构造 transport 请求。未声明的变量会被丢弃，值为 nil 的已声明变量原样保留（即 GraphQL null）。
func Request(op Operation, vars map[string]any) graphql.Request {
	out := make(map[string]any, len(op.Variables))
	for k, v := range vars {
		if op.declares(k) {
			out[k] = v
		}
	}
	return graphql.Request{
		Query:         op.Document,
		OperationName: op.Name,
		Variables:     out,
	}
}
