package core

import "github.com/rushteam/item2rec/pkg/utils"

// RecommendContext 承载单次推荐请求的用户/场景信息，贯穿整个链路透传。
type RecommendContext struct {
	// CustomerID 客户标识（customer profile id）
	CustomerID string

	// BrandID 品牌维度过滤（可选，为空表示全量）
	BrandID string

	// History 客户已购商品集合，由 Composer 在请求入口处拉取一次，
	// 召回（查询向量）与过滤（去已购）共用，避免重复外部调用。
	// nil 表示历史拉取失败或客户无历史。
	History map[string]struct{}

	// Labels 请求级标签，可驱动链路行为（例如 tier 选择的观测打点）
	Labels map[string]utils.Label

	// Params 请求级上下文参数
	Params map[string]any
}

// InHistory 判断商品是否在客户已购集合中。
func (rctx *RecommendContext) InHistory(itemID string) bool {
	if rctx == nil || rctx.History == nil {
		return false
	}
	_, ok := rctx.History[itemID]
	return ok
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
