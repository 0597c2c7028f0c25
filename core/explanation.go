package core

// Contribution 是单个特征对分数的贡献。
// Value 与 Contribution 可以为空（LLM 兜底路径中模型可能给出 null）。
type Contribution struct {
	Feature      string   `json:"feature"`
	Value        *float64 `json:"value"`
	Contribution *float64 `json:"contribution"`
}

// Explanation 是一次解释的结果。
// Contributions 按 |contribution| 降序排列，长度不超过 TopK。
type Explanation struct {
	BaseValue     float64        `json:"base_value"`
	Contributions []Contribution `json:"contributions"`
	TopK          int            `json:"top_k"`
	Reason        *string        `json:"reason"`
}

// Float64 返回指向 v 的指针，便于构造可空字段。
func Float64(v float64) *float64 { return &v }

// String 返回指向 s 的指针，便于构造可空字段。
func String(s string) *string { return &s }

// Clamp01 将概率限制在 [0, 1] 区间内。
func Clamp01(p float64) float64 {
	if p != p { // NaN
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
