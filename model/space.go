package model

import "math"

// EmbeddingSpace 是训练产出的商品向量空间。
//
// 核心思想：
//   - 将商品 ID 映射为稠密向量，同一客户历史中共现的商品在空间中相邻
//   - 通过历史商品向量的平均得到客户的查询向量表示
//   - 词表外（OOV）的商品没有向量，不贡献任何信号
//
// 不变量：
//   - 每个达到 min_count 出现次数的商品恰有一个 Dimension 维向量
//   - Ranked 是按语料频次降序（同频按 ID 字典序）排列的完整词表，
//     顺序确定可复现，冷启动兜底直接取其前缀
type EmbeddingSpace struct {
	// Vectors 商品向量表：itemID -> vector（未归一化，归一化是索引构建的职责）
	Vectors map[string][]float64 `json:"vectors"`

	// Dimension 向量维度
	Dimension int `json:"dimension"`

	// Ranked 按频次降序排列的词表
	Ranked []string `json:"ranked"`

	// Counts 词表内每个商品的语料出现次数
	Counts map[string]int `json:"counts"`
}

// Size 返回词表大小。
func (s *EmbeddingSpace) Size() int {
	return len(s.Ranked)
}

// Vector 获取单个商品的向量。词表外返回 (nil, false)。
func (s *EmbeddingSpace) Vector(itemID string) ([]float64, bool) {
	vec, ok := s.Vectors[itemID]
	return vec, ok
}

// InVocab 判断商品是否在词表内。
func (s *EmbeddingSpace) InVocab(itemID string) bool {
	_, ok := s.Vectors[itemID]
	return ok
}

// EncodeSequence 将商品 ID 列表编码为单个向量（词表内向量的逐元素平均）。
// 列表中没有任何词表内商品时返回 nil（调用方据此走冷启动）。
func (s *EmbeddingSpace) EncodeSequence(itemIDs []string) []float64 {
	aggregated := make([]float64, s.Dimension)
	validCount := 0

	for _, id := range itemIDs {
		vec, ok := s.Vectors[id]
		if !ok || len(vec) != s.Dimension {
			continue
		}
		validCount++
		for i := 0; i < s.Dimension; i++ {
			aggregated[i] += vec[i]
		}
	}

	if validCount == 0 {
		return nil
	}
	for i := 0; i < s.Dimension; i++ {
		aggregated[i] /= float64(validCount)
	}
	return aggregated
}

// Similarity 计算两个向量的余弦相似度。
func (s *EmbeddingSpace) Similarity(vec1, vec2 []float64) float64 {
	if len(vec1) != len(vec2) {
		return 0.0
	}

	var dot, norm1, norm2 float64
	for i := 0; i < len(vec1); i++ {
		dot += vec1[i] * vec2[i]
		norm1 += vec1[i] * vec1[i]
		norm2 += vec2[i] * vec2[i]
	}

	if norm1 == 0 || norm2 == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(norm1) * math.Sqrt(norm2))
}
