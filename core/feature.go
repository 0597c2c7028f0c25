package core

// Feature 是一个命名特征值。
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FeatureSet 是有序的特征序列，是打分与解释链路中的统一承载结构。
//
// 约束：
//   - 特征名在同一个 FeatureSet 内唯一
//   - 顺序即插入顺序，决定扰动/输出顺序，并且必须与向量下标一一对应
type FeatureSet []Feature

// Names 返回按顺序排列的特征名。
func (fs FeatureSet) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Values 返回按顺序排列的特征值（即打分向量）。
func (fs FeatureSet) Values() []float64 {
	values := make([]float64, len(fs))
	for i, f := range fs {
		values[i] = f.Value
	}
	return values
}

// Map 返回 name -> value 的字典形式（丢失顺序，仅用于按名查找）。
func (fs FeatureSet) Map() map[string]float64 {
	m := make(map[string]float64, len(fs))
	for _, f := range fs {
		m[f.Name] = f.Value
	}
	return m
}
