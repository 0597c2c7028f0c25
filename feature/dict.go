package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// Dict 是有序的特征字典（features_dict）。
//
// Go 的 map 迭代顺序是随机的，而特征顺序决定了向量下标与扰动顺序，
// 因此调用方以 Dict 传入具名特征：
//   - JSON 反序列化时保留文档中的 key 顺序
//   - DictFromMap 按 key 字典序排序，保证结果确定
//
// nil 表示“未提供”，非 nil 的空 Dict 表示“提供了空字典”。
type Dict []core.Feature

// DictFromMap 将 map 转为按 key 排序的 Dict。m 为 nil 时返回 nil。
func DictFromMap(m map[string]float64) Dict {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(Dict, 0, len(keys))
	for _, k := range keys {
		d = append(d, core.Feature{Name: k, Value: m[k]})
	}
	return d
}

// UnmarshalJSON 解析 JSON 对象并保留 key 顺序。
// 值必须可转为数字（数字、数字字符串、bool），重复 key 视为错误。
func (d *Dict) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("features: expected JSON object, got %v", tok)
	}

	out := make(Dict, 0)
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("features: duplicate feature %q", name)
		}
		seen[name] = struct{}{}
		v, ok := conv.ParseFloat64(raw)
		if !ok {
			return fmt.Errorf("features: value of %q is not numeric: %v", name, raw)
		}
		out = append(out, core.Feature{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// MarshalJSON 按顺序输出 JSON 对象，整数值不带小数点。
func (d Dict) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteString(", ")
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return nil, fmt.Errorf("features: value of %q is not finite: %v", f.Name, f.Value)
		}
		buf.Write(key)
		buf.WriteString(": ")
		buf.WriteString(strconv.FormatFloat(f.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
