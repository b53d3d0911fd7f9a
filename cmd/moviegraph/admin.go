package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/John-Robertt/moviegraph/internal/catalog"
	"github.com/John-Robertt/moviegraph/internal/config"
	"github.com/John-Robertt/moviegraph/internal/domain"
	"github.com/John-Robertt/moviegraph/internal/infra/fsx"
	"github.com/John-Robertt/moviegraph/internal/infra/logx"
	"github.com/John-Robertt/moviegraph/internal/seed"
)

// seedRunner 允许测试替换 Bolt 连接。
var newSeedRunner = func(ctx context.Context, opts seed.Neo4jOptions) (seedRunner, error) {
	return seed.NewNeo4jRunner(ctx, opts)
}

type seedRunner interface {
	seed.Runner
	Close(ctx context.Context) error
}

func (a *app) seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "通过 Bolt 向 Neo4j 写入示例数据（MERGE，可重复执行）",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "YAML 数据集（默认使用内置数据集）"},
		},
		Action: a.action("seed", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			if err := a.eff.RequireNeo4j(); err != nil {
				return err
			}

			ds := seed.Default()
			if p := cmd.String("file"); p != "" {
				path, err := a.resolvePath(p)
				if err != nil {
					return withCode(errCodeSeedFailed, err)
				}
				ds, err = seed.Load(path)
				if err != nil {
					return withCode(errCodeSeedFailed, err)
				}
			}

			r, err := newSeedRunner(ctx, seed.Neo4jOptions{
				URI:      a.eff.Neo4j.URI,
				Username: a.eff.Neo4j.Username,
				Password: a.eff.Neo4j.Password,
				Database: a.eff.Neo4j.Database,
			})
			if err != nil {
				return withCode(domain.ErrCodeNetwork, err)
			}
			defer func() { _ = r.Close(ctx) }()

			c, err := seed.Seed(logx.WithLogger(ctx, a.log), r, ds)
			if err != nil {
				return withCode(errCodeSeedFailed, err)
			}
			res.Data = c
			res.Count = c.NodesCreated + c.RelationshipsCreated
			return nil
		}),
	}
}

func (a *app) initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "在当前目录生成 moviegraph.yaml 模板（不覆盖已有文件）",
		Action: a.action("init", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			path, err := a.resolvePath(config.FileName)
			if err != nil {
				return withCode(errCodeWriteFailed, err)
			}
			if err := fsx.WriteNew(path, []byte(config.Template), 0o600); err != nil {
				if errors.Is(err, os.ErrExist) {
					return &cmdError{Code: errCodeFileExists, Err: err}
				}
				return withCode(errCodeWriteFailed, err)
			}
			res.Data = map[string]any{"path": path}
			res.Count = 1
			return nil
		}),
	}
}

func (a *app) validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "用内置 schema 校验全部 GraphQL 操作文档",
		Action: a.action("validate", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			reg := catalog.StandardRegistry()
			if err := catalog.Validate(reg, catalog.SchemaSDL); err != nil {
				return withCode(errCodeCatalogInvalid, err)
			}
			names := reg.Names()
			res.Data = map[string]any{"operations": names}
			res.Count = len(names)
			return nil
		}),
	}
}
