package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/John-Robertt/moviegraph/internal/app/form"
	"github.com/John-Robertt/moviegraph/internal/app/movies"
	"github.com/John-Robertt/moviegraph/internal/catalog"
	"github.com/John-Robertt/moviegraph/internal/config"
	"github.com/John-Robertt/moviegraph/internal/domain"
	"github.com/John-Robertt/moviegraph/internal/graphql"
	"github.com/John-Robertt/moviegraph/internal/infra/logx"
	"github.com/John-Robertt/moviegraph/internal/infra/metrics"
	"github.com/John-Robertt/moviegraph/internal/querycache"
)

// app 持有一次命令执行的 IO 与按需构造的依赖。
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	stdoutTTY bool
	stderrTTY bool
	stdinTTY  bool

	getwd func() (string, error)
	now   func() time.Time

	eff     config.EffectiveConfig
	log     *zap.Logger
	metrics *metrics.Metrics
	cache   *querycache.Store
	svc     *movies.Service
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		stdoutTTY: isTTY(stdout),
		stderrTTY: isTTY(stderr),
		stdinTTY:  isTTY(stdin),
		getwd:     os.Getwd,
		now:       time.Now,
	}
}

// usageError 表示参数错误（退出码 2，不输出 Result）。
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// reportedError 表示 Result 已经输出过，main 只负责退出码。
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// exitCode 把命令返回值映射为进程退出码：0 成功，1 失败，2 参数错误。
func (a *app) exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(a.stderr, "参数错误：%v\n", ue.err)
		return 2
	}
	var re *reportedError
	if errors.As(err, &re) {
		return 1
	}
	// 没经过 action 包装的错误（例如 flag 解析之外的框架错误）也按 Result 契约输出。
	res := domain.NewResult("moviegraph", a.now())
	res.Fail(err)
	res.FinishedAt = a.now()
	res.Finalize()
	a.emit(res)
	return 1
}

// action 把一次命令包装成 Result：成功与失败都输出，失败再以 reportedError 返回。
func (a *app) action(op string, fn func(ctx context.Context, cmd *cli.Command, res *domain.Result) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		defer a.close()

		res := domain.NewResult(op, a.now())
		err := fn(ctx, cmd, &res)
		var ue *usageError
		if errors.As(err, &ue) {
			return err
		}
		if err != nil {
			res.Fail(err)
		}
		res.FinishedAt = a.now()
		res.Finalize()
		a.emit(res)
		if err != nil {
			return &reportedError{err: err}
		}
		return nil
	}
}

func cliArgs(cmd *cli.Command) config.CLIArgs {
	return config.CLIArgs{
		ConfigPath:    cmd.String("config"),
		Endpoint:      cmd.String("endpoint"),
		APIKey:        cmd.String("api-key"),
		APIKeyHeader:  cmd.String("api-key-header"),
		ProxyURL:      cmd.String("proxy"),
		LogLevel:      cmd.String("log-level"),
		Neo4jURI:      cmd.String("neo4j-uri"),
		Neo4jUsername: cmd.String("neo4j-username"),
		Neo4jPassword: cmd.String("neo4j-password"),
	}
}

// loadConfig 读取生效配置并构造 logger（日志始终写 stderr）。
func (a *app) loadConfig(cmd *cli.Command) error {
	cwd, err := a.getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}
	eff, err := config.LoadEffective(cwd, cliArgs(cmd))
	if err != nil {
		return err
	}
	log, err := logx.New(eff.LogLevel, a.stderr)
	if err != nil {
		return &config.Error{Code: config.ErrCodeInvalid, Path: eff.Source, Err: err}
	}
	a.eff = eff
	a.log = log
	return nil
}

// service 构造 GraphQL 相关的全部依赖：
// config -> logger -> 校验操作目录 -> metrics -> transport -> cache -> service。
func (a *app) service(cmd *cli.Command) (*movies.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if err := a.loadConfig(cmd); err != nil {
		return nil, err
	}
	if err := a.eff.RequireGraphQL(); err != nil {
		return nil, err
	}

	reg := catalog.StandardRegistry()
	if err := catalog.Validate(reg, catalog.SchemaSDL); err != nil {
		return nil, err
	}

	a.metrics = metrics.New()
	client, err := graphql.New(graphql.Options{
		Endpoint:     a.eff.Endpoint,
		APIKey:       a.eff.APIKey,
		APIKeyHeader: a.eff.APIKeyHeader,
		ProxyURL:     a.eff.ProxyURL,
		Timeout:      a.eff.Timeout,
	}, a.log, a.metrics)
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Path: a.eff.Source, Err: err}
	}
	cache, err := querycache.New(querycache.Options{
		StaleTime:  a.eff.Cache.StaleTime,
		GCTime:     a.eff.Cache.GCTime,
		MaxEntries: a.eff.Cache.MaxEntries,
		ReadRetry:  a.eff.Cache.ReadRetry,
		RetryDelay: a.eff.Cache.RetryDelay,
		Logger:     a.log,
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, err
	}
	a.cache = cache
	a.svc = movies.New(client, reg, cache, a.log)
	return a.svc, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
		a.cache = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	a.svc = nil
}

// observer 只在 stderr 是 TTY 时打印表单进度。
func (a *app) observer(op string) form.Observer {
	if !a.stderrTTY {
		return nil
	}
	p := newProgressUI(a.stderr)
	p.OnStart(op, a.eff)
	return p
}
