package graphql

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/moviegraph/internal/domain"
)

// Kind 标记 transport 失败发生在哪个阶段。
type Kind string

const (
	KindNetwork Kind = "network"
	KindDecode  Kind = "decode"
)

// Error 是 transport 阶段的可追溯错误（网络失败 / 响应无法解析）。
type Error struct {
	Operation string
	Kind      Kind
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("operation=%s stage=%s: %v", e.Operation, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrCode() string {
	if e.Kind == KindDecode {
		return domain.ErrCodeDecode
	}
	return domain.ErrCodeNetwork
}

// HTTPStatusError 表示 endpoint 返回了非 2xx。
// Message 尽量从响应体里提取（网关 HTML 错误页的 <title>、JSON 的 message/errors）。
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("%s：HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s：HTTP %d：%s", e.Operation, e.StatusCode, msg)
}

func (e *HTTPStatusError) ErrCode() string { return domain.ErrCodeHTTPStatus }

// GraphQLError 是响应体 errors 数组中的一项。
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// ResponseError 表示服务端在响应体中返回了 errors（HTTP 状态可能是 200）。
type ResponseError struct {
	Operation string
	Errors    []GraphQLError
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		m := strings.TrimSpace(ge.Message)
		if m == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return fmt.Sprintf("%s：服务端返回了错误", e.Operation)
	}
	return fmt.Sprintf("%s：%s", e.Operation, strings.Join(msgs, "; "))
}

func (e *ResponseError) ErrCode() string { return domain.ErrCodeGraphQL }

const maxMessageLen = 200

// bodyMessage 从非 2xx 响应体中提取一行可读信息。
func bodyMessage(contentType string, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "html") || bytes.HasPrefix(bytes.ToLower(body), []byte("<!doctype html")) || bytes.HasPrefix(bytes.ToLower(body), []byte("<html")):
		return truncate(htmlMessage(body))
	case strings.Contains(ct, "json") || body[0] == '{':
		var r struct {
			Message string         `json:"message"`
			Errors  []GraphQLError `json:"errors"`
		}
		if err := codec.Unmarshal(body, &r); err == nil {
			if strings.TrimSpace(r.Message) != "" {
				return truncate(r.Message)
			}
			if len(r.Errors) > 0 {
				return truncate((&ResponseError{Errors: r.Errors}).joined())
			}
		}
	}
	return truncate(string(body))
}

func (e *ResponseError) joined() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return strings.Join(msgs, "; ")
}

// htmlMessage 处理网关/代理返回的 HTML 错误页：优先 <title>，其次首个 <h1>，最后正文文本。
func htmlMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if s := normSpace(doc.Find("title").First().Text()); s != "" {
		return s
	}
	if s := normSpace(doc.Find("h1").First().Text()); s != "" {
		return s
	}
	return normSpace(doc.Find("body").Text())
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func truncate(s string) string {
	s = normSpace(s)
	r := []rune(s)
	if len(r) <= maxMessageLen {
		return s
	}
	return string(r[:maxMessageLen]) + "…"
}
