package pipeline

import (
	"context"

	"github.com/rushteam/item2rec/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：生成候选集
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选（已购、种群过滤）
	KindReRank      Kind = "rerank"      // 重排阶段：排序截断
	KindPostProcess Kind = "postprocess" // 后处理阶段：补充元数据或最终结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态，方便召回生成、过滤截断、重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeBuilder 根据配置构建一个 Node（配置驱动场景）。
type NodeBuilder func(config map[string]interface{}) (Node, error)

// NodeFactory 持有类型名到构建函数的注册表。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

// NewNodeFactory 创建一个空的 Node 工厂。
func NewNodeFactory() *NodeFactory {
	return &NodeFactory{builders: make(map[string]NodeBuilder)}
}

// Register 注册一种 Node 类型的构建逻辑。
func (f *NodeFactory) Register(typeName string, builder NodeBuilder) {
	f.builders[typeName] = builder
}

// Build 按类型名构建 Node。
func (f *NodeFactory) Build(typeName string, config map[string]interface{}) (Node, error) {
	builder, ok := f.builders[typeName]
	if !ok {
		return nil, core.NewDomainError("pipeline", core.ErrorCodeNotSupported,
			"pipeline: unknown node type "+typeName)
	}
	return builder(config)
}
