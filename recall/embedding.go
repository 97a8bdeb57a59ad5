package recall

import (
	"context"

	"github.com/rushteam/item2rec/bundle"
	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/index"
	"github.com/rushteam/item2rec/pipeline"
	"github.com/rushteam/item2rec/pkg/utils"
)

// Embedding 是基于商品向量空间的个性化召回源（Tier A）。
//
// 核心思想：
//   - 客户历史与词表求交（OOV 商品无信号，静默丢弃）
//   - 词表内历史向量逐元素平均得到查询向量，L2 归一化
//   - 索引内积检索 top 2×TopK（封顶词表规模），为下游过滤留余量
//
// 已购过滤与最终截断不在召回内做：由 filter.Purchased 与
// rerank.TopN 在同一条 Pipeline 上完成。
type Embedding struct {
	// Bundle 本次请求使用的模型包快照（请求期间不变）
	Bundle *bundle.Bundle

	// TopK 最终期望的结果数；实际检索量为 2×TopK
	TopK int
}

func (r *Embedding) Name() string        { return "recall.embedding" }
func (r *Embedding) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Embedding) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
// 没有模型包或客户没有任何词表内历史时返回 (nil, nil)，
// 由 Composer 落入下一层。
func (r *Embedding) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Bundle == nil || r.Bundle.Space == nil || r.Bundle.Index == nil || rctx == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. 历史与词表求交
	known := make([]string, 0, len(rctx.History))
	for itemID := range rctx.History {
		if r.Bundle.Space.InVocab(itemID) {
			known = append(known, itemID)
		}
	}
	if len(known) == 0 {
		return nil, nil
	}

	// 2. 查询向量：词表内历史向量的平均，L2 归一化
	query := r.Bundle.Space.EncodeSequence(known)
	if query == nil {
		return nil, nil
	}
	query = index.Normalize(query)

	// 3. 超量检索，给已购过滤留余量
	topK := r.TopK
	if topK <= 0 {
		topK = 10
	}
	n := topK * 2
	if size := r.Bundle.Index.Size(); n > size {
		n = size
	}
	results := r.Bundle.Index.Search(query, n)

	// 4. 封装候选；类目元数据尚未接入，Tier A 恒为 "unknown"
	out := make([]*core.Item, 0, len(results))
	for _, res := range results {
		it := core.NewItem(res.ItemID)
		it.Score = res.Score
		it.PutLabel("recall_source", utils.Label{Value: "embedding", Source: "recall"})
		it.PutLabel("category", utils.Label{Value: "unknown", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
