package feature

import (
	"fmt"
	"math"

	"github.com/rushteam/churnkit/core"
)

// Normalize 将具名特征或原始数值向量统一为 FeatureSet。
//
// 规则（优先级顺序）：
//  1. dict 非 nil：原样返回（保持顺序），特征名必须唯一
//  2. vector 非 nil：合成特征名 f0, f1, …, f(n-1)
//  3. 都为 nil：INVALID_INPUT，属于调用方契约错误，不重试
//
// NaN 与 ±Inf 无法编码为 JSON，也没有打分意义，任一路径出现都返回 INVALID_INPUT。
func Normalize(dict Dict, vector []float64) (core.FeatureSet, error) {
	if dict != nil {
		seen := make(map[string]struct{}, len(dict))
		fs := make(core.FeatureSet, len(dict))
		for i, f := range dict {
			if _, dup := seen[f.Name]; dup {
				return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
					fmt.Sprintf("duplicate feature name %q", f.Name))
			}
			seen[f.Name] = struct{}{}
			if err := checkFinite(f); err != nil {
				return nil, err
			}
			fs[i] = f
		}
		return fs, nil
	}
	if vector != nil {
		fs := make(core.FeatureSet, len(vector))
		for i, v := range vector {
			fs[i] = core.Feature{Name: SyntheticName(i), Value: v}
			if err := checkFinite(fs[i]); err != nil {
				return nil, err
			}
		}
		return fs, nil
	}
	return nil, ErrNoFeatures
}

func checkFinite(f core.Feature) error {
	if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
			fmt.Sprintf("feature %q is not finite: %v", f.Name, f.Value))
	}
	return nil
}

// SyntheticName 返回第 i 个位置特征的合成名 "f{i}"。
func SyntheticName(i int) string {
	return fmt.Sprintf("f%d", i)
}

// ErrNoFeatures 表示既没有 features_dict 也没有 features_vector。
var ErrNoFeatures = core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "provide features_dict or features_vector")
