package feature

import (
	"context"
	"fmt"
	"strconv"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	"github.com/feast-dev/feast/sdk/go/protos/feast/serving"
	"github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/churnkit/core"
)

// OnlineFeatureClient 是 Feast 在线特征服务的最小抽象，便于测试时替换。
// *feastsdk.GrpcClient 实现此接口。
type OnlineFeatureClient interface {
	GetOnlineFeatures(ctx context.Context, req *feastsdk.OnlineFeaturesRequest) (*feastsdk.OnlineFeaturesResponse, error)
}

// FeastLookup 从 Feast 在线特征库按客户 ID 读取特征，产出有序 Dict。
//
// 使用场景：调用方只知道客户 ID（例如命令行 -customer），特征存在 Feature Store 中。
// 输出顺序与 Features 配置顺序一致。任一特征缺失返回 NOT_FOUND，非数值返回 INVALID_INPUT，
// 不会返回缺位的 Dict。
type FeastLookup struct {
	client OnlineFeatureClient

	// Project 项目名称
	Project string

	// Features 特征引用列表，例如 ["customer_stats:tenure", "customer_stats:monthly_charges"]
	Features []string

	// EntityKey 实体列名，默认 "customer_id"
	EntityKey string
}

// NewFeastLookup 连接 Feast gRPC 服务（默认端口 6565）。
func NewFeastLookup(host string, port int, project string, features []string) (*FeastLookup, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeUpstreamFailure,
			fmt.Sprintf("connect feast %s:%d", host, port), err)
	}
	return NewFeastLookupWithClient(client, project, features), nil
}

// NewFeastLookupWithClient 使用注入的客户端创建 FeastLookup（测试用）。
func NewFeastLookupWithClient(client OnlineFeatureClient, project string, features []string) *FeastLookup {
	return &FeastLookup{
		client:    client,
		Project:   project,
		Features:  features,
		EntityKey: "customer_id",
	}
}

// Lookup 读取单个客户的在线特征。
func (l *FeastLookup) Lookup(ctx context.Context, customerID string) (Dict, error) {
	if customerID == "" {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "customer id is required")
	}
	if len(l.Features) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "no feast features configured")
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: l.Features,
		Entities: []feastsdk.Row{{l.EntityKey: feastsdk.StrVal(customerID)}},
		Project:  l.Project,
	}
	resp, err := l.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeUpstreamFailure, "feast get online features", err)
	}

	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Metadata == nil || resp.RawResponse.Metadata.FieldNames == nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUpstreamFailure, "feast returned an empty response")
	}
	rows := resp.Rows()
	if len(rows) != 1 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound,
			fmt.Sprintf("feast returned %d rows for customer %s", len(rows), customerID))
	}
	row, statuses := rows[0], resp.Statuses()[0]

	out := make(Dict, 0, len(l.Features))
	for _, ref := range l.Features {
		val, ok := row[ref]
		if !ok || val.GetVal() == nil || statuses[ref] != serving.FieldStatus_PRESENT {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound,
				fmt.Sprintf("feast feature %s missing for customer %s (status %s)", ref, customerID, statuses[ref]))
		}
		f, ok := valueToFloat64(val)
		if !ok {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
				fmt.Sprintf("feast feature %s is not numeric for customer %s", ref, customerID))
		}
		out = append(out, core.Feature{Name: ref, Value: f})
	}
	return out, nil
}

// valueToFloat64 将 Feast 的 *types.Value 转为 float64；bool 视为 1.0/0.0。
func valueToFloat64(val *types.Value) (float64, bool) {
	if val == nil {
		return 0, false
	}
	switch v := val.Val.(type) {
	case *types.Value_DoubleVal:
		return v.DoubleVal, true
	case *types.Value_FloatVal:
		return float64(v.FloatVal), true
	case *types.Value_Int64Val:
		return float64(v.Int64Val), true
	case *types.Value_Int32Val:
		return float64(v.Int32Val), true
	case *types.Value_BoolVal:
		if v.BoolVal {
			return 1, true
		}
		return 0, true
	case *types.Value_StringVal:
		f, err := strconv.ParseFloat(v.StringVal, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var _ OnlineFeatureClient = (*feastsdk.GrpcClient)(nil)
