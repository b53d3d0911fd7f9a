// Package graphql 是对 GraphQL endpoint 的单次请求封装（transport client）。
//
// 约束：
// - 每次 Do 只发一次 POST：不做缓存、不做重试（读重试在 querycache 层统一实现）
// - 超时只来自 http.Client 本身
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/John-Robertt/moviegraph/internal/infra/httpx"
	"github.com/John-Robertt/moviegraph/internal/infra/metrics"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultAPIKeyHeader 是托管 GraphQL 服务默认的 API key header。
	DefaultAPIKeyHeader = "x-api-key"

	maxBodyBytes = 16 << 20
)

// Request 是 POST body 的结构。
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Options 描述连接参数。Endpoint 与 APIKey 来自运行时配置，从不写死在源码里。
type Options struct {
	Endpoint     string
	APIKey       string
	APIKeyHeader string
	ProxyURL     string
	Timeout      time.Duration
}

type Client struct {
	endpoint string
	http     *http.Client
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// New 构造 Client。log/m 可以为 nil。
func New(opts Options, log *zap.Logger, m *metrics.Metrics) (*Client, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint 不能为空")
	}
	header := strings.TrimSpace(opts.APIKeyHeader)
	if header == "" {
		header = DefaultAPIKeyHeader
	}

	h := http.Header{}
	if opts.APIKey != "" {
		h.Set(header, opts.APIKey)
	}
	hc, err := httpx.NewClient(httpx.Options{
		ProxyURL: opts.ProxyURL,
		Timeout:  opts.Timeout,
		Header:   h,
	})
	if err != nil {
		return nil, errors.Wrap(err, "构造 HTTP client 失败")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{endpoint: endpoint, http: hc, log: log, metrics: m}, nil
}

// Do 发送一次请求，返回响应中的 data 成员。
//
// 失败类型：
// - *Error{Kind: KindNetwork}：网络失败
// - *HTTPStatusError：非 2xx
// - *ResponseError：响应体 errors 非空
// - *Error{Kind: KindDecode}：响应体无法解析或缺少 data
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	started := time.Now()
	data, err := c.do(ctx, req)
	dur := time.Since(started)

	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
		c.log.Debug("graphql 请求失败",
			zap.String("operation", req.OperationName),
			zap.Duration("dur", dur),
			zap.Error(err))
	} else {
		c.log.Debug("graphql 请求完成",
			zap.String("operation", req.OperationName),
			zap.Duration("dur", dur),
			zap.Int("bytes", len(data)))
	}
	c.metrics.ObserveRequest(req.OperationName, outcome, dur)
	return data, err
}

func (c *Client) do(ctx context.Context, req Request) (json.RawMessage, error) {
	op := req.OperationName
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	body, err := codec.Marshal(req)
	if err != nil {
		return nil, &Error{Operation: op, Kind: KindDecode, Err: errors.Wrap(err, "编码请求失败")}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Operation: op, Kind: KindNetwork, Err: errors.Wrap(err, "构造请求失败")}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Operation: op, Kind: KindNetwork, Err: errors.Wrap(err, "请求 GraphQL endpoint 失败")}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Operation: op, Kind: KindNetwork, Err: errors.Wrap(err, "读取响应失败")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    bodyMessage(resp.Header.Get("Content-Type"), b),
		}
	}

	var r response
	if err := codec.Unmarshal(b, &r); err != nil {
		return nil, &Error{Operation: op, Kind: KindDecode, Err: errors.Wrap(err, "解析响应失败")}
	}
	if len(r.Errors) > 0 {
		return nil, &ResponseError{Operation: op, Errors: r.Errors}
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil, &Error{Operation: op, Kind: KindDecode, Err: errors.New("响应缺少 data")}
	}
	return r.Data, nil
}

// DecodeField 把 data 的顶层字段 field 解码进 out。字段为 null 时 out 保持零值。
func DecodeField(data json.RawMessage, field string, out any) error {
	var m map[string]json.RawMessage
	if err := codec.Unmarshal(data, &m); err != nil {
		return &Error{Operation: field, Kind: KindDecode, Err: errors.Wrap(err, "解析 data 失败")}
	}
	raw, ok := m[field]
	if !ok {
		return &Error{Operation: field, Kind: KindDecode, Err: errors.Errorf("data 中缺少字段 %q", field)}
	}
	if v := bytes.TrimSpace(raw); len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil
	}
	if err := codec.Unmarshal(raw, out); err != nil {
		return &Error{Operation: field, Kind: KindDecode, Err: errors.Wrapf(err, "解析字段 %q 失败", field)}
	}
	return nil
}

func outcomeOf(err error) string {
	var (
		se *HTTPStatusError
		re *ResponseError
		te *Error
	)
	switch {
	case errors.As(err, &se):
		return "http_status"
	case errors.As(err, &re):
		return "graphql_error"
	case errors.As(err, &te):
		return string(te.Kind)
	default:
		return "error"
	}
}
