package core

import "github.com/rushteam/item2rec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
// ID 使用 string 类型（商品 ID 可能是 SKU、UUID 等任意格式）。
type Item struct {
	ID     string
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}

// Category 返回物品的类目标签值；没有标注时返回 "unknown"。
// 个性化召回的商品元数据尚未接入，因此 Tier A 结果恒为 "unknown"。
func (it *Item) Category() string {
	if lbl, ok := it.GetLabel("category"); ok && lbl.Value != "" {
		return lbl.Value
	}
	return "unknown"
}

// Recommendation 是对外返回的单条推荐结果。
type Recommendation struct {
	ItemID   string  `json:"item_id"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

// ToRecommendation 将 Item 转换为对外的 Recommendation。
func (it *Item) ToRecommendation() Recommendation {
	return Recommendation{
		ItemID:   it.ID,
		Score:    it.Score,
		Category: it.Category(),
	}
}
