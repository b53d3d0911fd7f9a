package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/John-Robertt/moviegraph/internal/domain"
	"github.com/John-Robertt/moviegraph/internal/infra/fsx"
)

// 命令层自己的错误码（不属于 transport/校验分类）。
const (
	errCodeWriteFailed = "write_failed"
	errCodeFileExists  = "file_exists"
	errCodeSeedFailed  = "seed_failed"
	errCodeNotTTY      = "not_tty"
)

// errCodeCatalogInvalid 与 catalog.ValidationError 的 error_code 一致（schema 本身解析失败时补上）。
const errCodeCatalogInvalid = "catalog_invalid"

// cmdError 给命令层错误附加 error_code。
type cmdError struct {
	Code string
	Err  error
}

func (e *cmdError) Error() string   { return fmt.Sprintf("%s：%v", e.Code, e.Err) }
func (e *cmdError) Unwrap() error   { return e.Err }
func (e *cmdError) ErrCode() string { return e.Code }

// withCode 只在错误链里没有 error_code 时补一个。
func withCode(code string, err error) error {
	if err == nil || domain.Code(err) != "" {
		return err
	}
	return &cmdError{Code: code, Err: err}
}

func (a *app) moviesCommand() *cli.Command {
	return &cli.Command{
		Name:  "movies",
		Usage: "列出全部电影（按上映年份升序）",
		Action: a.action("movies", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			ms, err := svc.Movies(ctx)
			if err != nil {
				return err
			}
			res.Data, res.Count = ms, len(ms)
			return nil
		}),
	}
}

func (a *app) peopleCommand() *cli.Command {
	return &cli.Command{
		Name:  "people",
		Usage: "列出全部人物（按姓名升序）",
		Action: a.action("people", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			ps, err := svc.People(ctx)
			if err != nil {
				return err
			}
			res.Data, res.Count = ps, len(ps)
			return nil
		}),
	}
}

func (a *app) searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "按标题或标语搜索电影",
		ArgsUsage: "<term>",
		Action: a.action("search", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			// 解析器会丢掉空白参数，缺省与空白的搜索词都交给 Search 报 empty_search。
			if cmd.Args().Len() > 1 {
				return usagef("search 只接受一个搜索词（含空格时请加引号）")
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			ms, err := svc.Search(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			res.Data, res.Count = ms, len(ms)
			return nil
		}),
	}
}

func (a *app) exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "把电影列表原子写入 JSON 文件（覆盖已有文件）",
		ArgsUsage: "<file>",
		Action: a.action("export", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			if cmd.Args().Len() != 1 || strings.TrimSpace(cmd.Args().First()) == "" {
				return usagef("export 需要一个输出文件路径")
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			ms, err := svc.Movies(ctx)
			if err != nil {
				return err
			}
			if ms == nil {
				ms = []domain.Movie{}
			}
			b, err := codec.MarshalIndent(ms, "", "  ")
			if err != nil {
				return withCode(domain.ErrCodeDecode, err)
			}
			path, err := a.resolvePath(cmd.Args().First())
			if err != nil {
				return withCode(errCodeWriteFailed, err)
			}
			if err := fsx.Replace(path, append(b, '\n')); err != nil {
				return withCode(errCodeWriteFailed, err)
			}
			res.Data = map[string]any{"path": path, "movies": len(ms)}
			res.Count = len(ms)
			return nil
		}),
	}
}

func (a *app) resolvePath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	cwd, err := a.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, p), nil
}
