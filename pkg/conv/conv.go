// Package conv 提供类型转换工具，用于把 JSON / Feast / 配置中的弱类型值统一为 float64、string。
package conv

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、各类整型、json.Number；bool 视为 1.0/0.0。字符串不做解析。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// ParseFloat64 在 ToFloat64 的基础上额外接受数字字符串（如 "0.42"、" 1e-3 "）。
// LLM 输出中数值经常被引号包裹，抽取概率/贡献时使用此函数。
func ParseFloat64(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return ToFloat64(v)
}

// ToString 将 any 转为 string。
// string 原样返回；数字与 bool 格式化输出；nil 返回 ("", false)。
func ToString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	if f, ok := ToFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return fmt.Sprintf("%v", v), true
}
