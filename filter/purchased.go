package filter

import (
	"context"

	"github.com/rushteam/item2rec/core"
)

// Purchased 是已购过滤器：剔除客户历史中已有的商品。
// 历史集合由 Composer 在请求入口处拉取并挂在 RecommendContext 上，
// 过滤阶段不再发起外部调用。
type Purchased struct{}

func (f *Purchased) Name() string {
	return "filter.purchased"
}

func (f *Purchased) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}
	return rctx.InHistory(item.ID), nil
}
