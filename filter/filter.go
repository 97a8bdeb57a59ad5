// Package filter 提供候选过滤：已购剔除与种群过滤表达式。
package filter

import (
	"context"

	"github.com/rushteam/item2rec/core"
)

// Filter 判定单个候选是否应被剔除。
type Filter interface {
	Name() string

	// ShouldFilter 返回 true 表示剔除该候选
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}
