// Package form 实现表单提交的状态机：idle → submitting → {success | error} → idle。
//
// 约束：
// - 每个表单同一时刻最多一个在途提交；submitting 期间再次提交返回 busy
// - 客户端校验失败直接 idle → error → idle，不发请求
// - 成功：新建表单清空输入，编辑表单关闭；失败：保留输入，Err 返回最近一次错误
package form

import (
	"context"
	"sync"

	"github.com/John-Robertt/moviegraph/internal/domain"
)

type machine struct {
	name string
	obs  Observer

	mu    sync.Mutex
	state State
	err   error
}

func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err 返回最近一次提交的错误；成功提交后为 nil。
func (m *machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *machine) notify(from, to State, err error) {
	if m.obs != nil {
		m.obs.OnTransition(m.name, from, to, err)
	}
}

func (m *machine) move(to State, err error) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()
	m.notify(from, to, err)
}

// run 执行一次提交。prepare 在锁内调用，负责解析输入与客户端校验；
// dispatch 在锁外执行网络请求；succeed 在锁内更新表单输入。
func (m *machine) run(ctx context.Context, prepare func() (func(context.Context) error, error), succeed func()) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return &domain.ValidationError{Code: domain.ErrCodeBusy, Msg: "上一次提交尚未完成"}
	}
	dispatch, err := prepare()
	if err != nil {
		m.err = err
		m.state = StateError
		m.mu.Unlock()
		m.notify(StateIdle, StateError, err)
		m.move(StateIdle, err)
		return err
	}
	m.state = StateSubmitting
	m.mu.Unlock()
	m.notify(StateIdle, StateSubmitting, nil)

	err = dispatch(ctx)

	m.mu.Lock()
	m.err = err
	if err == nil {
		succeed()
		m.state = StateSuccess
	} else {
		m.state = StateError
	}
	to := m.state
	m.mu.Unlock()
	m.notify(StateSubmitting, to, err)

	m.move(StateIdle, err)
	return err
}
