package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrCodeUnknown 用于无法归类的错误（理论上不应出现在输出里）。
const ErrCodeUnknown = "unknown"

// Result 是 CLI 在非 TTY stdout 上输出的唯一 JSON 文档。
type Result struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// Warnings 用于提示非致命问题（例如同名标题命中了多条记录）。
	Warnings []string `json:"warnings"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Count int `json:"count"`
	Data  any `json:"data"`
}

// NewResult 以成功状态开始；失败时调用 Fail 覆盖。
func NewResult(op string, started time.Time) Result {
	return Result{
		Operation: op,
		Status:    StatusOK,
		Warnings:  []string{},
		StartedAt: started,
	}
}

// Fail 记录失败原因；error_code 取自错误链。
func (r *Result) Fail(err error) {
	r.Status = StatusFailed
	r.ErrorCode = Code(err)
	if r.ErrorCode == "" {
		r.ErrorCode = ErrCodeUnknown
	}
	if err != nil {
		r.ErrorMsg = err.Error()
	}
}

// Warn 追加一条警告。
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) 失败时清空 Data/Count，避免输出半截结果
func (r *Result) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if r.Status == StatusFailed {
		r.Data = nil
		r.Count = 0
	}
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r Result) MarshalJSON() ([]byte, error) {
	type Alias Result
	return json.Marshal(Alias(r))
}
