package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/John-Robertt/moviegraph/internal/app/form"
	"github.com/John-Robertt/moviegraph/internal/domain"
)

func (a *app) movieCommand() *cli.Command {
	return &cli.Command{
		Name:  "movie",
		Usage: "新建、修改、删除电影（以标题为查找键）",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "新建电影",
				Flags: movieFlags(),
				Action: a.action("movie.create", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
					svc, err := a.service(cmd)
					if err != nil {
						return err
					}
					f := form.NewMovieForm(svc, nil, a.observer("movie create"))
					if err := f.SetTitle(cmd.String("title")); err != nil {
						return err
					}
					if err := applyMovieFields(cmd, f); err != nil {
						return err
					}
					if err := f.Submit(ctx); err != nil {
						return err
					}
					m, _ := f.Created()
					res.Data, res.Count = m, 1
					return nil
				}),
			},
			{
				Name:  "update",
				Usage: "修改电影的年份/标语（未给出的字段保持不变）",
				Flags: movieFlags(),
				Action: a.action("movie.update", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
					svc, err := a.service(cmd)
					if err != nil {
						return err
					}
					title := strings.TrimSpace(cmd.String("title"))
					f := form.NewMovieForm(svc, &domain.Movie{Title: title}, a.observer("movie update"))
					if err := applyMovieFields(cmd, f); err != nil {
						return err
					}
					if err := f.Submit(ctx); err != nil {
						return err
					}
					updated := f.Updated()
					res.Data, res.Count = updated, len(updated)
					warnMatched(res, title, len(updated))
					return nil
				}),
			},
			{
				Name:  "delete",
				Usage: "删除电影（同名记录会全部删除）",
				Flags: []cli.Flag{titleFlag(), yesFlag()},
				Action: a.action("movie.delete", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
					svc, err := a.service(cmd)
					if err != nil {
						return err
					}
					title := cmd.String("title")
					info, err := svc.DeleteMovie(ctx, title, a.confirmer(cmd))
					if err != nil {
						return err
					}
					res.Data, res.Count = info, info.NodesDeleted
					warnMatched(res, strings.TrimSpace(title), info.NodesDeleted)
					return nil
				}),
			},
		},
	}
}

func (a *app) personCommand() *cli.Command {
	return &cli.Command{
		Name:  "person",
		Usage: "新建人物",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "新建人物",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "姓名（必填）"},
					&cli.StringFlag{Name: "born", Usage: "出生年份"},
				},
				Action: a.action("person.create", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
					svc, err := a.service(cmd)
					if err != nil {
						return err
					}
					f := form.NewPersonForm(svc, a.observer("person create"))
					f.SetName(cmd.String("name"))
					born, err := yearFlag(cmd, "born")
					if err != nil {
						return err
					}
					f.SetBorn(born)
					if err := f.Submit(ctx); err != nil {
						return err
					}
					p, _ := f.Created()
					res.Data, res.Count = p, 1
					return nil
				}),
			},
		},
	}
}

// relationCommand 生成 actor / director 两组 assign/remove 子命令。
func (a *app) relationCommand(name, usage string, actor bool) *cli.Command {
	assignFlags := []cli.Flag{movieRefFlag(), personRefFlag()}
	if actor {
		assignFlags = append(assignFlags, &cli.StringSliceFlag{Name: "role", Usage: "角色名（可重复）"})
	}
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Commands: []*cli.Command{
			{
				Name:  "assign",
				Usage: "建立关系（已存在时不重复创建）",
				Flags: assignFlags,
				Action: a.action(name+".assign", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
					svc, err := a.service(cmd)
					if err != nil {
						return err
					}
					// 先载入电影列表，已存在的关系在本地就能判出，不再发变更。
					if _, err := svc.Movies(ctx); err != nil {
						return err
					}
					movie, person := cmd.String("movie"), cmd.String("person")
					var ms []domain.Movie
					if actor {
						ms, err = svc.AssignActor(ctx, domain.ActedIn{Movie: movie, Person: person, Roles: cmd.StringSlice("role")})
					} else {
						ms, err = svc.AssignDirector(ctx, domain.Directed{Movie: movie, Person: person})
					}
					if err != nil {
						return err
					}
					res.Data, res.Count = ms, len(ms)
					warnMatched(res, strings.TrimSpace(movie), len(ms))
					return nil
				}),
			},
			{
				Name:  "remove",
				Usage: "移除关系（需要确认）",
				Flags: []cli.Flag{movieRefFlag(), personRefFlag(), yesFlag()},
				Action: a.action(name+".remove", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
					svc, err := a.service(cmd)
					if err != nil {
						return err
					}
					movie, person := cmd.String("movie"), cmd.String("person")
					var ms []domain.Movie
					if actor {
						ms, err = svc.RemoveActor(ctx, movie, person, a.confirmer(cmd))
					} else {
						ms, err = svc.RemoveDirector(ctx, movie, person, a.confirmer(cmd))
					}
					if err != nil {
						return err
					}
					res.Data, res.Count = ms, len(ms)
					warnMatched(res, strings.TrimSpace(movie), len(ms))
					return nil
				}),
			},
		},
	}
}

func titleFlag() cli.Flag {
	return &cli.StringFlag{Name: "title", Usage: "电影标题（查找键）"}
}

func movieRefFlag() cli.Flag {
	return &cli.StringFlag{Name: "movie", Usage: "电影标题"}
}

func personRefFlag() cli.Flag {
	return &cli.StringFlag{Name: "person", Usage: "人物姓名"}
}

func movieFlags() []cli.Flag {
	return []cli.Flag{
		titleFlag(),
		&cli.StringFlag{Name: "released", Usage: "上映年份"},
		&cli.StringFlag{Name: "tagline", Usage: "标语"},
	}
}

// applyMovieFields 只写入显式给出的字段；update 时未给出的字段不会出现在变量里。
func applyMovieFields(cmd *cli.Command, f *form.MovieForm) error {
	released, err := yearFlag(cmd, "released")
	if err != nil {
		return err
	}
	if released != nil {
		f.SetReleased(released)
	}
	if cmd.IsSet("tagline") {
		v := cmd.String("tagline")
		f.SetTagline(&v)
	}
	return nil
}

// yearFlag 年份按字符串接收，非整数报 invalid_input 而不是参数错误。
func yearFlag(cmd *cli.Command, name string) (*int, error) {
	if !cmd.IsSet(name) {
		return nil, nil
	}
	raw := strings.TrimSpace(cmd.String(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.Invalid(name, fmt.Sprintf("必须是整数：%q", raw))
	}
	return &v, nil
}

func warnMatched(res *domain.Result, title string, n int) {
	if n > 1 {
		res.Warn(fmt.Sprintf("标题 %q 命中了 %d 条记录（标题不是唯一键）", title, n))
	}
}
