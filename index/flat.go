// Package index 提供商品向量的相似度索引。
//
// 当前实现是精确的平铺内积索引（flat index）：所有向量在插入时做
// L2 归一化，内积检索即余弦相似度。对千级到百万级词表，精确扫描
// 的延迟可以接受；近似结构（HNSW/IVF 等）是性能优化选项，不是
// 正确性要求。
package index

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/model"
)

// Result 是一次检索命中。
type Result struct {
	ItemID string
	Score  float64 // 内积（归一化向量下即余弦相似度）
}

// Flat 是精确的内积索引。
//
// 不变量：
//   - 索引规模等于词表规模，位置按 EmbeddingSpace.Ranked 的顺序分配
//   - 位置在一次构建内稳定，但不保证与历史构建一致；
//     位置映射必须与索引同包构建、同包加载，绝不跨版本复用
type Flat struct {
	dimension int
	ids       []string       // 位置 -> itemID
	pos       map[string]int // itemID -> 位置
	vectors   [][]float64    // L2 归一化后的向量，按位置排列
}

// Build 从 EmbeddingSpace 构建索引。
// 每个向量拷贝后做 L2 归一化，原空间的向量保持未归一化。
func Build(space *model.EmbeddingSpace) (*Flat, error) {
	if space == nil || space.Size() == 0 {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput,
			"index: embedding space is empty")
	}

	f := &Flat{
		dimension: space.Dimension,
		ids:       make([]string, 0, space.Size()),
		pos:       make(map[string]int, space.Size()),
		vectors:   make([][]float64, 0, space.Size()),
	}

	for _, id := range space.Ranked {
		vec, ok := space.Vector(id)
		if !ok || len(vec) != space.Dimension {
			return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput,
				"index: vector missing or dimension mismatch for item "+id)
		}
		f.pos[id] = len(f.ids)
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, Normalize(vec))
	}
	return f, nil
}

// Size 返回索引内的向量数。
func (f *Flat) Size() int { return len(f.ids) }

// Dimension 返回向量维度。
func (f *Flat) Dimension() int { return f.dimension }

// Position 返回商品的稠密位置。
func (f *Flat) Position(itemID string) (int, bool) {
	p, ok := f.pos[itemID]
	return p, ok
}

// ItemAt 返回指定位置的商品 ID。
func (f *Flat) ItemAt(position int) (string, bool) {
	if position < 0 || position >= len(f.ids) {
		return "", false
	}
	return f.ids[position], true
}

// Search 返回与查询向量内积最高的 topN 个商品（降序）。
// 查询向量由调用方负责归一化；topN 超过索引规模时按全量返回。
func (f *Flat) Search(query []float64, topN int) []Result {
	if len(query) != f.dimension || topN <= 0 {
		return nil
	}

	scored := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		var dot float64
		for d := range vec {
			dot += query[d] * vec[d]
		}
		scored[i] = Result{ItemID: f.ids[i], Score: dot}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ItemID < scored[j].ItemID
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// Normalize 返回向量的 L2 归一化拷贝。零向量原样返回拷贝。
func Normalize(vec []float64) []float64 {
	out := make([]float64, len(vec))
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		copy(out, vec)
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// flatJSON 是 Flat 的序列化形态（位置映射由 ids 的顺序隐含）。
type flatJSON struct {
	Dimension int         `json:"dimension"`
	IDs       []string    `json:"ids"`
	Vectors   [][]float64 `json:"vectors"`
}

// MarshalJSON 实现 json.Marshaler。
func (f *Flat) MarshalJSON() ([]byte, error) {
	return json.Marshal(flatJSON{
		Dimension: f.dimension,
		IDs:       f.ids,
		Vectors:   f.vectors,
	})
}

// UnmarshalJSON 实现 json.Unmarshaler，重建位置映射。
func (f *Flat) UnmarshalJSON(data []byte) error {
	var raw flatJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.IDs) != len(raw.Vectors) {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput,
			"index: ids and vectors length mismatch")
	}

	f.dimension = raw.Dimension
	f.ids = raw.IDs
	f.vectors = raw.Vectors
	f.pos = make(map[string]int, len(raw.IDs))
	for i, id := range raw.IDs {
		f.pos[id] = i
	}
	return nil
}
