package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/John-Robertt/moviegraph/internal/app/movies"
)

// confirmer 决定删除/移除关系的确认方式：
// - --yes：直接确认
// - stdin 与 stderr 都是 TTY：在 stderr 上提示 y/N
// - 其它（管道、CI）：返回 nil，由 service 报 not_confirmed
func (a *app) confirmer(cmd *cli.Command) movies.Confirmer {
	if cmd.Bool("yes") {
		return movies.Yes
	}
	if !a.stdinTTY || !a.stderrTTY {
		return nil
	}
	r := bufio.NewReader(a.stdin)
	return movies.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		fmt.Fprintf(a.stderr, "%s [y/N] ", prompt)
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return false, nil
		}
		return parseYes(line), nil
	})
}

func parseYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
