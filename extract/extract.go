// Package extract 从生成后端的自由文本中抽取 JSON 对象。
//
// 生成模型常在 JSON 前后附带解释性文字（"Sure! {...} Hope this helps"），
// 这里先取第一个贪婪的 {…} 区间，失败后再做一次括号配平扫描，按起点依次尝试。
package extract

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// spanRe 匹配第一个 '{' 到最后一个 '}'（可跨行）。
var spanRe = regexp.MustCompile(`(?s)\{.*\}`)

// JSON 从 text 中抽取第一个可解析的 JSON 对象。
// 找不到或无法解析时返回 MALFORMED_OUTPUT，Detail 为原文前 200 个字符。
func JSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	span := spanRe.FindString(text)
	if span == "" {
		return nil, core.NewMalformedOutput(core.ModuleExtract, "no JSON object found", text)
	}
	if obj, ok := decodeObject(span); ok {
		return obj, nil
	}
	for _, candidate := range balancedSpans(text) {
		if obj, ok := decodeObject(candidate); ok {
			return obj, nil
		}
	}
	return nil, core.NewMalformedOutput(core.ModuleExtract, "JSON object could not be parsed", text)
}

// ChurnProbability 抽取 churn_proba 字段。数字字符串也被接受，不做截断。
func ChurnProbability(text string) (float64, error) {
	obj, err := JSON(text)
	if err != nil {
		return 0, err
	}
	raw, ok := obj["churn_proba"]
	if !ok || raw == nil {
		return 0, core.NewMalformedOutput(core.ModuleExtract, "missing churn_proba", text)
	}
	p, ok := conv.ParseFloat64(raw)
	if !ok {
		return 0, core.NewMalformedOutput(core.ModuleExtract, "churn_proba is not numeric", text)
	}
	return p, nil
}

func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	// 区间内只允许一个 JSON 值
	if dec.More() {
		return nil, false
	}
	return obj, true
}

// balancedSpans 单次扫描文本，用栈记录未闭合的 '{'，返回所有配平的区间（按起点排序）。
// 字符串字面量内的括号不计；栈为空时的引号属于正文，不进入字符串状态。
func balancedSpans(text string) []string {
	type span struct{ start, end int }
	var (
		found            []span
		stack            []int
		inString, escape bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escape:
			escape = false
		case inString && c == '\\':
			escape = true
		case c == '"' && len(stack) > 0:
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, i)
		case c == '}' && len(stack) > 0:
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			found = append(found, span{start, i + 1})
		}
	}
	sort.Slice(found, func(a, b int) bool { return found[a].start < found[b].start })
	spans := make([]string, len(found))
	for i, sp := range found {
		spans[i] = text[sp.start:sp.end]
	}
	return spans
}
