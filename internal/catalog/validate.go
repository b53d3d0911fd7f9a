package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/parser"
	"github.com/dgraph-io/gqlparser/v2/validator"
	_ "github.com/dgraph-io/gqlparser/v2/validator/rules" // 规则在 init 中注册，缺少时 Validate 不做任何检查
	"github.com/pkg/errors"
)

// SchemaSDL 是内置的服务端 schema（只包含本客户端用到的类型）。
//
//go:embed schema.graphql
var SchemaSDL string

// Problem 是一条校验失败。
type Problem struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

// ValidationError 汇总 Validate 发现的全部问题。
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Operation+"："+p.Message)
	}
	return "catalog 校验失败：" + strings.Join(parts, "; ")
}

func (e *ValidationError) ErrCode() string { return "catalog_invalid" }

// LoadSchema 解析 SDL。
func LoadSchema(sdl string) (*ast.Schema, error) {
	doc, gqlErr := parser.ParseSchemas(validator.Prelude, &ast.Source{Name: "schema.graphql", Input: sdl})
	if gqlErr != nil {
		return nil, errors.Wrap(gqlErr, "解析 schema 失败")
	}
	sch, gqlErr := validator.ValidateSchemaDocument(doc)
	if gqlErr != nil {
		return nil, errors.Wrap(gqlErr, "校验 schema 失败")
	}
	return sch, nil
}

// Validate 对照 schemaSDL 校验 reg 中的每份文档：
// - 文档可解析且恰好包含一个同名 operation
// - operation 类型与 Kind 一致
// - 变量定义与 Variables 完全一致
// - 顶层字段与 Field 一致
// - 通过 gqlparser 的标准校验规则
//
// 全部通过返回 nil；否则返回 *ValidationError（按 operation 名排序）。
func Validate(reg Registry, schemaSDL string) error {
	sch, err := LoadSchema(schemaSDL)
	if err != nil {
		return err
	}

	var problems []Problem
	for _, name := range reg.Names() {
		op := reg.MustGet(name)
		for _, msg := range check(sch, op) {
			problems = append(problems, Problem{Operation: name, Message: msg})
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func check(sch *ast.Schema, op Operation) []string {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Name: op.Name, Input: op.Document})
	if gqlErr != nil {
		return []string{"解析失败：" + gqlErr.Message}
	}
	if len(doc.Operations) != 1 {
		return []string{fmt.Sprintf("文档应只包含 1 个 operation，实际 %d 个", len(doc.Operations))}
	}

	var out []string
	def := doc.Operations[0]
	if def.Name != op.Name {
		out = append(out, fmt.Sprintf("operation 名不一致：文档为 %q", def.Name))
	}
	if string(def.Operation) != string(op.Kind) {
		out = append(out, fmt.Sprintf("kind 不一致：文档为 %q，声明为 %q", def.Operation, op.Kind))
	}

	declared := make([]string, 0, len(def.VariableDefinitions))
	for _, vd := range def.VariableDefinitions {
		declared = append(declared, vd.Variable)
	}
	want := append([]string(nil), op.Variables...)
	sort.Strings(declared)
	sort.Strings(want)
	if strings.Join(declared, ",") != strings.Join(want, ",") {
		out = append(out, fmt.Sprintf("变量不一致：文档为 [%s]，声明为 [%s]",
			strings.Join(declared, ","), strings.Join(want, ",")))
	}

	if f := topField(def); f != op.Field {
		out = append(out, fmt.Sprintf("顶层字段不一致：文档为 %q，声明为 %q", f, op.Field))
	}

	// 变量值在运行时才有，这里只校验文档本身。
	for _, e := range validator.Validate(sch, doc, nil) {
		out = append(out, e.Message)
	}
	return out
}

func topField(def *ast.OperationDefinition) string {
	for _, sel := range def.SelectionSet {
		if f, ok := sel.(*ast.Field); ok {
			return f.Name
		}
	}
	return ""
}
