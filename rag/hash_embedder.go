package rag

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/rushteam/churnkit/core"
)

// DefaultHashDim 是 HashEmbedder 的默认维度。
const DefaultHashDim = 256

// HashEmbedder 是离线可用的确定性向量化器（hashing trick）。
//
// 文本按非字母数字切词并转小写，每个词经 xxhash 映射到一个维度，
// 最高位决定正负号，最后做 L2 归一化。不需要模型服务，适合测试与无 GPU 环境。
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder 创建向量化器，dim <= 0 时使用 DefaultHashDim。
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		sign := 1.0
		if h>>63 == 1 {
			sign = -1.0
		}
		vec[h%uint64(e.dim)] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

var _ core.Embedder = (*HashEmbedder)(nil)
