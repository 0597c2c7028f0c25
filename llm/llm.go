// Package llm 提供生成与向量化后端：Ollama 与 OpenAI 兼容接口。
//
// 两个客户端都实现 core.Generator 与 core.Embedder。
// 传输错误与非 2xx 响应统一包装为 UPSTREAM_FAILURE，底层错误（含 context.Canceled）可通过 errors.Is 判断。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rushteam/churnkit/core"
)

// maxResponseBytes 限制单次响应体大小。
const maxResponseBytes = 1 << 20

// postJSON 发送 JSON 请求并把 2xx 响应解码到 out。
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return core.WrapDomainError(core.ModuleLLM, core.ErrorCodeUpstreamFailure, "http request "+url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return core.WrapDomainError(core.ModuleLLM, core.ErrorCodeUpstreamFailure, "read response", err)
	}
	if resp.StatusCode/100 != 2 {
		return &core.DomainError{
			Module:  core.ModuleLLM,
			Code:    core.ErrorCodeUpstreamFailure,
			Message: fmt.Sprintf("%s: http %d", url, resp.StatusCode),
			Detail:  core.Excerpt(string(data), core.MaxExcerptLen),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return core.WrapDomainError(core.ModuleLLM, core.ErrorCodeUpstreamFailure, "decode response", err)
	}
	return nil
}
