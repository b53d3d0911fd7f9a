// Command moviegraph 是远端电影图谱 GraphQL 服务的命令行客户端。
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	os.Exit(a.run(context.Background(), os.Args))
}

func (a *app) run(ctx context.Context, args []string) int {
	return a.exitCode(a.command().Run(ctx, args))
}

func (a *app) command() *cli.Command {
	root := &cli.Command{
		Name:      "moviegraph",
		Version:   version,
		Usage:     "电影图谱 GraphQL 客户端",
		Reader:    a.stdin,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			a.moviesCommand(),
			a.peopleCommand(),
			a.searchCommand(),
			a.exportCommand(),
			a.movieCommand(),
			a.personCommand(),
			a.relationCommand("actor", "演员关系（ACTED_IN）", true),
			a.relationCommand("director", "导演关系（DIRECTED）", false),
			a.browseCommand(),
			a.seedCommand(),
			a.initCommand(),
			a.validateCommand(),
		},
	}
	setUsageHandler(root)
	return root
}

// setUsageHandler 让整棵命令树的 flag 解析错误都走退出码 2。
func setUsageHandler(cmd *cli.Command) {
	cmd.OnUsageError = func(ctx context.Context, cmd *cli.Command, err error, isSubcommand bool) error {
		return &usageError{err: err}
	}
	for _, sub := range cmd.Commands {
		setUsageHandler(sub)
	}
}

// globalFlags 在根命令上声明，子命令可以直接读取。
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "配置文件路径（默认 ./moviegraph.yaml，可选）",
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "GraphQL endpoint（http/https）",
			Sources: cli.EnvVars("MOVIEGRAPH_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key",
			Sources: cli.EnvVars("MOVIEGRAPH_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "api-key-header",
			Usage:   "携带 API key 的 header 名（默认 x-api-key）",
			Sources: cli.EnvVars("MOVIEGRAPH_API_KEY_HEADER"),
		},
		&cli.StringFlag{
			Name:    "proxy",
			Usage:   "HTTP 代理 URL",
			Sources: cli.EnvVars("MOVIEGRAPH_PROXY"),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "日志级别：debug/info/warn/error",
		},
		&cli.StringFlag{
			Name:    "neo4j-uri",
			Usage:   "seed 使用的 Bolt URI",
			Sources: cli.EnvVars("NEO4J_URI"),
		},
		&cli.StringFlag{
			Name:    "neo4j-username",
			Sources: cli.EnvVars("NEO4J_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "neo4j-password",
			Sources: cli.EnvVars("NEO4J_PASSWORD"),
		},
	}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "yes",
		Usage: "跳过确认",
	}
}
