package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/John-Robertt/moviegraph/internal/domain"
)

func (a *app) browseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "交互式浏览与编辑电影（需要终端）",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "在该地址暴露 /metrics（例如 127.0.0.1:9464）；为空则不启用",
			},
		},
		Action: a.action("browse", func(ctx context.Context, cmd *cli.Command, res *domain.Result) error {
			if !a.stdoutTTY || !a.stdinTTY {
				return &cmdError{Code: errCodeNotTTY, Err: errors.New("browse 需要交互终端（stdin 与 stdout 都必须是 TTY）")}
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}

			if addr := cmd.String("metrics-addr"); addr != "" {
				stop, err := a.serveMetrics(addr)
				if err != nil {
					return withCode(domain.ErrCodeNetwork, err)
				}
				defer stop()
			}

			model := newBrowseModel(ctx, svc)
			p := tea.NewProgram(model,
				tea.WithContext(ctx),
				tea.WithInput(a.stdin),
				tea.WithOutput(a.stdout),
				tea.WithAltScreen(),
			)
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			res.Count = len(model.movies)
			return nil
		}),
	}
}

// serveMetrics 在 addr 上暴露 promhttp handler，返回的 stop 会优雅关闭。
func (a *app) serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics 服务退出", zap.Error(err))
		}
	}()
	a.log.Info("metrics 已启用", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
