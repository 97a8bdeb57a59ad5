package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/pipeline"
)

// TopN 是 Top-N 截断节点：按分数降序排序后截取前 N 个物品。
// 分数相同的物品按 ID 升序排列，保证同一请求的输出稳定可复现。
//
// 使用场景：
//   - 召回与过滤之后，限制最终返回结果数量
//   - 过滤会打乱候选规模，截断前统一重排兜底
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Embedding{...},   // 召回
//	        &filter.FilterNode{...},  // 过滤
//	        &rerank.TopN{N: 10},      // 截取 Top 10
//	    },
//	}
type TopN struct {
	// N 要保留的物品数量（Top N）
	// 如果 N <= 0，则只排序不截断
	N int
}

func (n *TopN) Name() string {
	return "rerank.topn"
}

func (n *TopN) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopN) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})

	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
