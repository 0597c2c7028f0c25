package expert

import (
	"context"
	"fmt"
	"io"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/llm"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/rag"
	"github.com/rushteam/churnkit/store"
)

// Build 返回按配置构建会话的 Builder：生成后端、可选打分器、可选检索增强。
// 构建过程中任一步失败都会关闭已打开的连接。
func Build(cfg *config.Config, opts ...Option) Builder {
	o := newOptions(opts)
	return func(ctx context.Context) (_ *Session, err error) {
		sess := &Session{
			TopK:               cfg.Retrieval.TopK,
			ExplainConcurrency: cfg.Explain.Concurrency,
		}
		defer func() {
			if err != nil {
				_ = sess.Close()
			}
		}()

		backend := o.backend
		if backend == nil {
			if backend, err = llm.New(cfg.Generation, o.logger); err != nil {
				return nil, err
			}
		}
		sess.Generator = backend

		scorer, err := model.NewScorer(cfg.Scorer)
		if err != nil {
			return nil, err
		}
		if scorer != nil {
			sess.Scorer = model.NewAdapter(scorer,
				model.WithLogger(o.logger),
				model.WithDegradedCounter(o.metrics.ScorerDegraded))
			if cfg.Scorer.Direct {
				sess.Expert = model.NewScorerExpert(sess.Scorer)
			}
		}

		if cfg.Retrieval.Enabled() {
			if sess.Context, err = buildContextStore(ctx, cfg.Retrieval, backend, o, sess); err != nil {
				return nil, err
			}
		}
		return sess, nil
	}
}

func buildContextStore(ctx context.Context, cfg config.RetrievalConfig, backend core.Embedder, o options, sess *Session) (*rag.ContextStore, error) {
	var embedder core.Embedder = backend
	if cfg.Embedding == "hash" {
		embedder = rag.NewHashEmbedder(cfg.EmbeddingDim)
	}
	if cfg.CacheSize > 0 {
		cached, err := rag.NewCachedEmbedder(embedder, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		embedder = cached
	}

	var index core.EmbeddingIndex
	switch {
	case cfg.VectorStore == "memory://":
		index = store.NewMemoryIndex(embedder)
	default:
		redisIndex, err := store.NewRedisIndex(ctx, cfg.VectorStore, cfg.Collection, embedder)
		if err != nil {
			return nil, err
		}
		sess.closers = append(sess.closers, redisIndex)
		index = redisIndex
	}

	var source core.RecordSource
	switch cfg.DatabaseDriver {
	case "gorm":
		db, err := store.OpenGorm(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm db: %w", err)
		}
		sess.closers = append(sess.closers, sqlDB)
		source = store.NewGormSource(db, cfg.Query)
	case "postgres", "sqlite":
		db, err := store.OpenSQL(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		sess.closers = append(sess.closers, db)
		source = store.NewSQLSource(db, cfg.Query)
	default:
		return nil, core.NewDomainError(core.ModuleExpert, core.ErrorCodeNotSupported,
			fmt.Sprintf("unsupported database driver: %s", cfg.DatabaseDriver))
	}

	return rag.NewContextStore(index, source,
		rag.WithBackfillLimit(cfg.BackfillLimit),
		rag.WithLogger(o.logger),
		rag.WithBackfillCounter(o.metrics.RAGBackfills),
	), nil
}

var _ io.Closer = (*Session)(nil)
