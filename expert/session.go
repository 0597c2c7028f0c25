// Package expert 编排流失概率预测与解释：懒加载会话、直接概率路径、生成后端兜底、检索增强。
package expert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/rag"
)

// Session 是一次初始化得到的专家会话，初始化后只读，可被并发请求共享。
type Session struct {
	ID string

	// Generator 生成后端，LLM 兜底路径使用
	Generator core.Generator

	// Expert 原生概率能力（可选），存在时 PredictProbability 不调用生成后端
	Expert core.ProbabilityExpert

	// Scorer 数值打分适配器（可选），存在时 Explain 走局部敏感度解释
	Scorer *model.Adapter

	// Context 检索增强上下文（可选）
	Context *rag.ContextStore

	// TopK 检索条数
	TopK int

	// ExplainConcurrency 局部解释的并发度
	ExplainConcurrency int

	closers []io.Closer
}

// Close 释放会话持有的连接。
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State 是会话单元的状态。
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateReady:
		return "READY"
	default:
		return "UNINITIALIZED"
	}
}

// Builder 构建会话。
type Builder func(ctx context.Context) (*Session, error)

// Lazy 是懒加载的会话单元：UNINITIALIZED → INITIALIZING → READY。
//
// 首次 Get 在互斥锁内构建会话；构建失败返回错误并回到 UNINITIALIZED，下次调用重试。
// READY 之后 Get 不再加锁。
type Lazy struct {
	mu      sync.Mutex
	state   atomic.Int32
	session atomic.Pointer[Session]
	build   Builder

	logger  *slog.Logger
	metrics *Metrics
}

// NewLazy 创建会话单元。
func NewLazy(build Builder, opts ...Option) *Lazy {
	o := newOptions(opts)
	return &Lazy{build: build, logger: o.logger, metrics: o.metrics}
}

// NewReady 用已构建的会话创建 READY 状态的单元。
func NewReady(s *Session, opts ...Option) *Lazy {
	l := NewLazy(func(context.Context) (*Session, error) { return s, nil }, opts...)
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	l.session.Store(s)
	l.state.Store(int32(StateReady))
	return l
}

// Get 返回 READY 的会话，必要时构建。
func (l *Lazy) Get(ctx context.Context) (*Session, error) {
	if s := l.session.Load(); s != nil {
		return s, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s := l.session.Load(); s != nil {
		return s, nil
	}

	l.state.Store(int32(StateInitializing))
	s, err := l.build(ctx)
	if err != nil {
		l.state.Store(int32(StateUninitialized))
		l.metrics.SessionInit.WithLabelValues("error").Inc()
		l.logger.Error("expert session init failed", "error", err)
		return nil, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	l.session.Store(s)
	l.state.Store(int32(StateReady))
	l.metrics.SessionInit.WithLabelValues("ok").Inc()
	l.logger.Info("expert session initialized",
		"session_id", s.ID,
		"direct", s.Expert != nil,
		"scorer", s.Scorer != nil,
		"retrieval", s.Context != nil)
	return s, nil
}

// State 返回当前状态。
func (l *Lazy) State() State {
	return State(l.state.Load())
}

// Close 关闭已构建的会话并回到 UNINITIALIZED。
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.session.Swap(nil)
	l.state.Store(int32(StateUninitialized))
	if s == nil {
		return nil
	}
	return s.Close()
}
