package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rushteam/churnkit/core"
)

// RPCModel 通过 HTTP 调用外部模型服务，实现 core.PredictScorer。
// 支持 TensorFlow Serving、TorchServe、自建 sklearn 服务等兼容 instances/predictions 协议的服务。
type RPCModel struct {
	name     string
	Endpoint string // 例如 "http://localhost:8501/v1/models/churn:predict"
	Timeout  time.Duration
	Client   *http.Client
}

func NewRPCModel(name, endpoint string, timeout time.Duration) *RPCModel {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RPCModel{
		name:     name,
		Endpoint: endpoint,
		Timeout:  timeout,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (m *RPCModel) Name() string {
	return m.name
}

// Predict 调用远程模型服务进行单条预测。
// 请求格式（JSON）：
//
//	{"instances": [[2, 95.0, ...]]}
//
// 响应格式（JSON）：
//
//	{"predictions": [0.82]}
func (m *RPCModel) Predict(ctx context.Context, x []float64) ([]float64, error) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: m.Timeout}
	}

	jsonData, err := json.Marshal(map[string]any{
		"instances": [][]float64{x},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeUpstreamFailure, "rpc call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &core.DomainError{
			Module:  core.ModuleModel,
			Code:    core.ErrorCodeUpstreamFailure,
			Message: fmt.Sprintf("rpc error: status=%d", resp.StatusCode),
			Detail:  core.Excerpt(string(body), core.MaxExcerptLen),
		}
	}

	var result struct {
		Predictions []float64 `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeMalformedOutput, "decode rpc response", err)
	}
	return result.Predictions, nil
}

var _ core.PredictScorer = (*RPCModel)(nil)
