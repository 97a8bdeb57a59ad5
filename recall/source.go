package recall

import (
	"context"

	"github.com/rushteam/item2rec/core"
)

// Source 表示一个可复用的召回源。
// 推荐 Composer 把三个降级层（个性化/热门/静态兜底）都建模为 Source，
// 按固定顺序逐层尝试，第一个产出结果的层胜出。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
