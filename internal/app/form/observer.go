package form

// State 是单个表单的提交状态。
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Observer 接收表单的状态迁移，把展示（spinner、错误提示、stderr 进度行）从提交流程中解耦出来。
//
// 约束：
// - form 包只发事件，不做任何输出
// - Observer 的实现必须并发安全：不同表单可能在不同 goroutine 中提交
// - 回调时不持有表单内部锁，可以在回调里读取表单状态
type Observer interface {
	// OnTransition 在每次状态迁移后调用；err 只在迁移到 error（以及随后回到 idle）时非空。
	OnTransition(form string, from, to State, err error)
}

// ObserverFunc 让普通函数满足 Observer。
type ObserverFunc func(form string, from, to State, err error)

func (f ObserverFunc) OnTransition(form string, from, to State, err error) { f(form, from, to, err) }
