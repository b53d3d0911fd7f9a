package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 20 * time.Second

	// UserAgent 是所有请求的固定 UA。
	UserAgent = "moviegraph/1.0 (+https://github.com/John-Robertt/moviegraph)"
)

// Transport 把固定 header 与 keep-alive 策略固化为统一策略。每个请求只发一次，
// 不论方法与错误类型都不重试（读重试在 querycache 层）。
//
// 上层（graphql 包）只负责组装请求体与解析响应，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	// Header 中的每一项都会写入请求；调用方已显式设置的同名 header 保持不变。
	Header http.Header

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	r := req.Clone(req.Context())
	for k, vs := range t.Header {
		if r.Header.Get(k) != "" || len(vs) == 0 {
			continue
		}
		r.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", UserAgent)
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// Options 描述 client 的网络策略。零值可用。
type Options struct {
	ProxyURL string
	Timeout  time.Duration
	Header   http.Header
}

// NewClient 构造访问 GraphQL endpoint 的 HTTP client。
//
// 规则：
// - ProxyURL 非空：走代理，且禁用 keep-alive（每请求新连接）
// - Header 为每个请求附加的固定 header（例如 API key）
// - Timeout 为 0 时使用默认总超时
func NewClient(opts Options) (*http.Client, error) {
	proxyURL := strings.TrimSpace(opts.ProxyURL)
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tr := &Transport{
		Base:              base,
		Header:            opts.Header.Clone(),
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
