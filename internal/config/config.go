package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingEndpoint 表示需要访问 GraphQL 的命令缺少 endpoint。
	ErrCodeMissingEndpoint = "config_missing_endpoint"
	// ErrCodeMissingAPIKey 表示需要访问 GraphQL 的命令缺少 api_key。
	ErrCodeMissingAPIKey = "config_missing_api_key"
)

// FileName 是 cwd 下默认查找的配置文件名。
const FileName = "moviegraph.yaml"

const (
	DefaultAPIKeyHeader = "x-api-key"
	DefaultTimeout      = 20 * time.Second
	DefaultStaleTime    = 60 * time.Second
	DefaultGCTime       = 5 * time.Minute
	DefaultMaxEntries   = 256
	DefaultReadRetry    = 1
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultLogLevel     = "info"
)

// CLIArgs 是来自命令行参数或环境变量的覆盖项；空串表示未指定。
type CLIArgs struct {
	ConfigPath string

	Endpoint     string
	APIKey       string
	APIKeyHeader string
	ProxyURL     string
	LogLevel     string

	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
}

// FileConfig 对应 moviegraph.yaml 的解析结构。
// 指针字段用来区分“未配置”与“显式配置为零值”（例如 stale_time: 0s 表示一直新鲜）。
type FileConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	APIKeyHeader string        `yaml:"api_key_header"`
	Proxy        *ProxyConfig  `yaml:"proxy"`
	Timeout      time.Duration `yaml:"timeout"`
	Cache        CacheConfig   `yaml:"cache"`
	Log          LogConfig     `yaml:"log"`
	Neo4j        Neo4jConfig   `yaml:"neo4j"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

type CacheConfig struct {
	StaleTime  *time.Duration `yaml:"stale_time"`
	GCTime     time.Duration  `yaml:"gc_time"`
	MaxEntries int            `yaml:"max_entries"`
	ReadRetry  *int           `yaml:"read_retry"`
	RetryDelay *time.Duration `yaml:"retry_delay"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Source 是实际读取的配置文件；没有读取任何文件时为空。
	Source string

	Endpoint     string
	APIKey       string
	APIKeyHeader string
	ProxyURL     string
	Timeout      time.Duration

	Cache    Cache
	LogLevel string
	Neo4j    Neo4jConfig
}

type Cache struct {
	StaleTime  time.Duration
	GCTime     time.Duration
	MaxEntries int
	ReadRetry  int
	RetryDelay time.Duration
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingEndpoint:
		return fmt.Sprintf("%s：未配置 endpoint（配置文件、--endpoint 或 MOVIEGRAPH_ENDPOINT）", e.Code)
	case ErrCodeMissingAPIKey:
		return fmt.Sprintf("%s：未配置 api_key（配置文件、--api-key 或 MOVIEGRAPH_API_KEY）", e.Code)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrCode() string { return e.Code }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/moviegraph.yaml（可选）
//
// 覆盖优先级（固定）：flag/env > 配置文件 > 内置默认值。
// endpoint/api_key 是否必填由命令决定（见 RequireGraphQL）。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	eff, err := merge(cli, fc, cfgPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	if exists {
		eff.Source = cfgPath
	}
	return eff, nil
}

func merge(cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	endpoint := pick(cli.Endpoint, fc.Endpoint, "")
	if endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return EffectiveConfig{}, invalid("endpoint 必须是 http/https URL：%q", endpoint)
		}
	}

	proxyURL := strings.TrimSpace(cli.ProxyURL)
	if proxyURL == "" && fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, invalid("proxy.url 无效：%w", err)
		}
	}

	timeout := fc.Timeout
	if timeout < 0 {
		return EffectiveConfig{}, invalid("timeout 不能为负数：%s", timeout)
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	cache, err := mergeCache(fc.Cache)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	level := strings.ToLower(pick(cli.LogLevel, fc.Log.Level, DefaultLogLevel))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, invalid("log.level 只能是 debug/info/warn/error，实际是 %q", level)
	}

	return EffectiveConfig{
		Endpoint:     endpoint,
		APIKey:       pick(cli.APIKey, fc.APIKey, ""),
		APIKeyHeader: pick(cli.APIKeyHeader, fc.APIKeyHeader, DefaultAPIKeyHeader),
		ProxyURL:     proxyURL,
		Timeout:      timeout,
		Cache:        cache,
		LogLevel:     level,
		Neo4j: Neo4jConfig{
			URI:      pick(cli.Neo4jURI, fc.Neo4j.URI, ""),
			Username: pick(cli.Neo4jUsername, fc.Neo4j.Username, ""),
			Password: pick(cli.Neo4jPassword, fc.Neo4j.Password, ""),
			Database: strings.TrimSpace(fc.Neo4j.Database),
		},
	}, nil
}

func mergeCache(cc CacheConfig) (Cache, error) {
	c := Cache{
		StaleTime:  DefaultStaleTime,
		GCTime:     DefaultGCTime,
		MaxEntries: DefaultMaxEntries,
		ReadRetry:  DefaultReadRetry,
		RetryDelay: DefaultRetryDelay,
	}
	if cc.StaleTime != nil {
		if *cc.StaleTime < 0 {
			return Cache{}, fmt.Errorf("cache.stale_time 不能为负数")
		}
		c.StaleTime = *cc.StaleTime
	}
	if cc.GCTime < 0 {
		return Cache{}, fmt.Errorf("cache.gc_time 不能为负数")
	}
	if cc.GCTime > 0 {
		c.GCTime = cc.GCTime
	}
	if cc.MaxEntries != 0 {
		// 超出范围截断，不报错。
		c.MaxEntries = clamp(cc.MaxEntries, 16, 65536)
	}
	if cc.ReadRetry != nil {
		c.ReadRetry = clamp(*cc.ReadRetry, 0, 5)
	}
	if cc.RetryDelay != nil {
		if *cc.RetryDelay < 0 {
			return Cache{}, fmt.Errorf("cache.retry_delay 不能为负数")
		}
		c.RetryDelay = *cc.RetryDelay
	}
	return c, nil
}

// RequireGraphQL 检查访问 GraphQL endpoint 所需的字段。
func (e EffectiveConfig) RequireGraphQL() error {
	if e.Endpoint == "" {
		return &Error{Code: ErrCodeMissingEndpoint, Path: e.Source}
	}
	if e.APIKey == "" {
		return &Error{Code: ErrCodeMissingAPIKey, Path: e.Source}
	}
	return nil
}

// RequireNeo4j 检查 seed 所需的 Bolt 连接字段。
func (e EffectiveConfig) RequireNeo4j() error {
	if e.Neo4j.URI == "" {
		return &Error{Code: ErrCodeInvalid, Path: e.Source, Err: fmt.Errorf("未配置 neo4j.uri（或 NEO4J_URI）")}
	}
	return nil
}

func pick(cli, file, def string) string {
	if v := strings.TrimSpace(cli); v != "" {
		return v
	}
	if v := strings.TrimSpace(file); v != "" {
		return v
	}
	return def
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件（未知字段报错）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
