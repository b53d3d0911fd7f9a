package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEffective_NoFileUsesDefaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != "" {
		t.Fatalf("期望未读取配置文件，实际 Source=%q", eff.Source)
	}
	if eff.APIKeyHeader != DefaultAPIKeyHeader || eff.Timeout != DefaultTimeout || eff.LogLevel != "info" {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	want := Cache{
		StaleTime:  DefaultStaleTime,
		GCTime:     DefaultGCTime,
		MaxEntries: DefaultMaxEntries,
		ReadRetry:  DefaultReadRetry,
		RetryDelay: DefaultRetryDelay,
	}
	if eff.Cache != want {
		t.Fatalf("期望 cache=%+v，实际=%+v", want, eff.Cache)
	}
	if code := Code(eff.RequireGraphQL()); code != ErrCodeMissingEndpoint {
		t.Fatalf("期望 %q，实际 %q", ErrCodeMissingEndpoint, code)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.yaml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_FileValues(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
endpoint: https://example.neo4jsandbox.com/graphql
api_key: file-key
proxy:
  url: http://127.0.0.1:7890
timeout: 5s
cache:
  stale_time: 0s
  gc_time: 1m
  max_entries: 3
  read_retry: 9
  retry_delay: 0s
log:
  level: DEBUG
neo4j:
  uri: neo4j://localhost:7687
  username: neo4j
  database: movies
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != filepath.Join(cwd, FileName) {
		t.Fatalf("Source=%q", eff.Source)
	}
	if eff.Endpoint != "https://example.neo4jsandbox.com/graphql" || eff.APIKey != "file-key" {
		t.Fatalf("endpoint/api_key 不符合预期：%+v", eff)
	}
	if eff.ProxyURL != "http://127.0.0.1:7890" || eff.Timeout != 5*time.Second {
		t.Fatalf("proxy/timeout 不符合预期：%+v", eff)
	}
	// stale_time: 0s 必须保留为 0（一直新鲜），max_entries/read_retry 超范围截断。
	want := Cache{StaleTime: 0, GCTime: time.Minute, MaxEntries: 16, ReadRetry: 5, RetryDelay: 0}
	if eff.Cache != want {
		t.Fatalf("期望 cache=%+v，实际=%+v", want, eff.Cache)
	}
	if eff.LogLevel != "debug" {
		t.Fatalf("期望 log.level=debug，实际=%q", eff.LogLevel)
	}
	if eff.Neo4j.URI != "neo4j://localhost:7687" || eff.Neo4j.Database != "movies" {
		t.Fatalf("neo4j 不符合预期：%+v", eff.Neo4j)
	}
	if err := eff.RequireGraphQL(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
}

func TestLoadEffective_CLIOverridesFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "custom.yaml"), []byte(`
endpoint: https://file.example/graphql
api_key: file-key
api_key_header: x-file-key
`))

	eff, err := LoadEffective(cwd, CLIArgs{
		ConfigPath:   "custom.yaml",
		Endpoint:     "http://cli.example/graphql",
		APIKey:       "cli-key",
		APIKeyHeader: "Authorization",
		Neo4jURI:     "bolt://db:7687",
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Endpoint != "http://cli.example/graphql" || eff.APIKey != "cli-key" || eff.APIKeyHeader != "Authorization" {
		t.Fatalf("CLI 应覆盖配置文件：%+v", eff)
	}
	if eff.Neo4j.URI != "bolt://db:7687" {
		t.Fatalf("neo4j.uri=%q", eff.Neo4j.URI)
	}
}

func TestLoadEffective_MissingAPIKey(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{Endpoint: "https://x.example/graphql"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if code := Code(eff.RequireGraphQL()); code != ErrCodeMissingAPIKey {
		t.Fatalf("期望 %q，实际 %q", ErrCodeMissingAPIKey, code)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown field": "endpointt: https://x/graphql\n",
		"bad endpoint":  "endpoint: ftp://x/graphql\n",
		"bad yaml":      "endpoint: [\n",
		"bad level":     "log:\n  level: loud\n",
		"neg timeout":   "timeout: -1s\n",
		"neg stale":     "cache:\n  stale_time: -1s\n",
		"bad duration":  "timeout: soon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(body))
			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestTemplate_Parses(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(Template))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("模板应能被解析：%v", err)
	}
	if eff.Cache.StaleTime != DefaultStaleTime {
		t.Fatalf("stale_time=%s", eff.Cache.StaleTime)
	}
}

func TestRequireNeo4j(t *testing.T) {
	if Code(EffectiveConfig{}.RequireNeo4j()) != ErrCodeInvalid {
		t.Fatalf("缺少 neo4j.uri 应报 %q", ErrCodeInvalid)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
