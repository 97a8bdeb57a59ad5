// Package item2rec 是一个商品推荐引擎（item-to-item recommendation）。
//
// 设计要点：
// - 训练/服务分离: Trainer 离线产出版本化模型包，Recommender 在线热加载
// - Pipeline-first: 在线链路通过 Node 串联（Recall → Filter → ReRank）
// - 降级兜底: 个性化 → 热门 → 静态三层链路，推荐请求绝不失败
package item2rec

import "github.com/rushteam/item2rec/pipeline"

// 轻量 facade：便于用户直接 import "item2rec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
