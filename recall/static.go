package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/pipeline"
	"github.com/rushteam/item2rec/pkg/utils"
)

// Static 是系统的可用性兜底（Tier C）：确定的占位商品列表。
//
// 没有模型包、或上游任何一层出现不可预期失败时生效。
// 该层不依赖任何外部状态，绝不失败、绝不 panic——
// 推荐降级优于请求失败。
type Static struct {
	// TopK 返回的商品数
	TopK int
}

func (r *Static) Name() string        { return "recall.static" }
func (r *Static) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Static) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
// 产出 prod_1..prod_N，分数从 0.7 起每位递减 0.1（单调递减）。
func (r *Static) Recall(
	_ context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 10
	}

	out := make([]*core.Item, 0, topK)
	for i := 1; i <= topK; i++ {
		it := core.NewItem(fmt.Sprintf("prod_%d", i))
		it.Score = 0.8 - 0.1*float64(i)
		it.PutLabel("recall_source", utils.Label{Value: "static", Source: "recall"})
		it.PutLabel("category", utils.Label{Value: "general", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
