// Package config 提供配置驱动的 Pipeline 构建：
// 根据 YAML/JSON 配置实例化内置 Node，组装成推荐流水线。
package config

import (
	"fmt"

	"github.com/rushteam/item2rec/filter"
	"github.com/rushteam/item2rec/pipeline"
	"github.com/rushteam/item2rec/pkg/conv"
	"github.com/rushteam/item2rec/recall"
	"github.com/rushteam/item2rec/rerank"
)

// DefaultFactory 返回一个包含所有内置 Node 的默认工厂。
//
// 依赖运行态资源的节点（recall.embedding、recall.popular 依赖模型包快照）
// 无法由静态配置构建，应由 service 层直接组装。
func DefaultFactory() *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	// 注册 Recall Nodes
	factory.Register("recall.static", buildStaticNode)
	factory.Register("recall.embedding", buildEmbeddingNode)

	// 注册 Filter Nodes
	factory.Register("filter", buildFilterNode)

	// 注册 ReRank Nodes
	factory.Register("rerank.topn", buildTopNNode)

	return factory
}

func buildStaticNode(config map[string]any) (pipeline.Node, error) {
	return &recall.Static{
		TopK: conv.ConfigGetInt(config, "top_k", 0),
	}, nil
}

func buildEmbeddingNode(config map[string]any) (pipeline.Node, error) {
	// 向量召回依赖模型包快照（热更新句柄），无法由静态配置构建
	return nil, fmt.Errorf("embedding node requires a model bundle, build it in the service layer")
}

func buildFilterNode(config map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := config["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet[string](filterMap, "type", "")
		switch filterType {
		case "purchased":
			filters = append(filters, &filter.Purchased{})

		case "population":
			expr := conv.ConfigGet[string](filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("population filter: expr not found")
			}
			f, err := filter.NewPopulation(expr)
			if err != nil {
				return nil, fmt.Errorf("population filter: %w", err)
			}
			filters = append(filters, f)

		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func buildTopNNode(config map[string]any) (pipeline.Node, error) {
	return &rerank.TopN{
		N: conv.ConfigGetInt(config, "n", 0),
	}, nil
}
