package expert

import (
	"log/slog"

	"github.com/rushteam/churnkit/llm"
)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
	backend llm.Backend
}

// Option 配置 Lazy、Orchestrator 与 Build。
type Option func(*options)

// WithLogger 设置日志，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics 设置指标，默认创建一组未注册的指标。
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithBackend 让 Build 使用给定的生成后端，而不是按配置创建。
func WithBackend(b llm.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}
