package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/churnkit/core"
)

// RedisIndex 是 Redis 实现的 core.EmbeddingIndex，数据可在进程间共享并持久化。
//
// 存储结构（collection 为前缀）：
//   - {collection}:ids            SET，全部文档 ID
//   - {collection}:doc:{id}       HASH，字段 document、embedding（JSON 数组）
//
// Query 读取全部文档做余弦相似度，适合千级文档量的检索增强场景。
type RedisIndex struct {
	client     *redis.Client
	collection string
	embedder   core.Embedder
}

// NewRedisIndex 按 URL 连接 Redis，例如 "redis://localhost:6379/0"。
func NewRedisIndex(ctx context.Context, url, collection string, embedder core.Embedder) (*RedisIndex, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "parse redis url", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "redis ping", err)
	}
	return NewRedisIndexWithClient(client, collection, embedder), nil
}

// NewRedisIndexWithClient 使用已有客户端创建索引。
func NewRedisIndexWithClient(client *redis.Client, collection string, embedder core.Embedder) *RedisIndex {
	return &RedisIndex{client: client, collection: collection, embedder: embedder}
}

func (r *RedisIndex) Name() string { return "redis" }

func (r *RedisIndex) idsKey() string { return r.collection + ":ids" }

func (r *RedisIndex) docKey(id string) string { return r.collection + ":doc:" + id }

func upstream(op string, err error) error {
	return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "redis "+op, err)
}

// Upsert 向量化后以 pipeline 批量写入。
func (r *RedisIndex) Upsert(ctx context.Context, ids, documents []string) error {
	if len(ids) != len(documents) {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "ids and documents length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	vectors, err := r.embedder.Embed(ctx, documents)
	if err != nil {
		return err
	}
	if len(vectors) != len(ids) {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError,
			fmt.Sprintf("embedder returned %d vectors for %d documents", len(vectors), len(ids)))
	}

	pipe := r.client.Pipeline()
	members := make([]any, len(ids))
	for i, id := range ids {
		emb, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		pipe.HSet(ctx, r.docKey(id), "document", documents[i], "embedding", string(emb))
		members[i] = id
	}
	pipe.SAdd(ctx, r.idsKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return upstream("upsert", err)
	}
	return nil
}

// Query 返回与 text 最相似的 topK 个文档。
func (r *RedisIndex) Query(ctx context.Context, text string, topK int) ([]string, error) {
	if topK <= 0 {
		return []string{}, nil
	}
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, upstream("smembers", err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "embedder returned no query vector")
	}
	query := vectors[0]

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.docKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, upstream("hgetall", err)
	}

	docs := make([]scoredDoc, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		var vec []float64
		if err := json.Unmarshal([]byte(fields["embedding"]), &vec); err != nil {
			continue
		}
		docs = append(docs, scoredDoc{id: ids[i], document: fields["document"], score: cosineSimilarity(query, vec)})
	}
	return topDocuments(docs, topK), nil
}

// IsEmpty 报告集合中是否没有文档。
func (r *RedisIndex) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.client.SCard(ctx, r.idsKey()).Result()
	if err != nil {
		return false, upstream("scard", err)
	}
	return n == 0, nil
}

// Drop 删除集合下的全部数据。
func (r *RedisIndex) Drop(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return upstream("smembers", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.docKey(id))
	}
	keys = append(keys, r.idsKey())
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return upstream("del", err)
	}
	return nil
}

func (r *RedisIndex) Close() error {
	return r.client.Close()
}

var _ core.EmbeddingIndex = (*RedisIndex)(nil)
