package recall

import (
	"context"

	"github.com/rushteam/item2rec/bundle"
	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/pipeline"
	"github.com/rushteam/item2rec/pkg/utils"
)

// Popular 是冷启动/新客户的热门召回源（Tier B）。
//
// 词表本身按语料频次降序排列（同频按 ID 字典序），直接取前 TopK
// 即为确定、可复现的"热门"列表——不做随机打散。
// 分数是固定的中档值：热门推荐没有个体相关性信号可言。
type Popular struct {
	// Bundle 本次请求使用的模型包快照
	Bundle *bundle.Bundle

	// TopK 返回的商品数
	TopK int

	// Score 固定分数，默认 0.7
	Score float64
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。没有模型包时返回 (nil, nil)。
func (r *Popular) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Bundle == nil || r.Bundle.Space == nil {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 10
	}
	score := r.Score
	if score == 0 {
		score = 0.7
	}

	ranked := r.Bundle.Space.Ranked
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]*core.Item, 0, len(ranked))
	for _, id := range ranked {
		it := core.NewItem(id)
		it.Score = score
		it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
		it.PutLabel("category", utils.Label{Value: "popular", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
