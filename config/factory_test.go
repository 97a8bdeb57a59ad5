package config

import (
	"context"
	"testing"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/pipeline"
)

func TestDefaultFactory_BuildPipeline(t *testing.T) {
	factory := DefaultFactory()

	cfg := &pipeline.Config{}
	cfg.Pipeline.Name = "fallback"
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{
		{Type: "recall.static", Config: map[string]any{"top_k": 5}},
		{Type: "filter", Config: map[string]any{
			"filters": []any{
				map[string]any{"type": "purchased"},
				map[string]any{"type": "population", "expr": "item.score > 0.1"},
			},
		}},
		{Type: "rerank.topn", Config: map[string]any{"n": 3}},
	}

	p, err := cfg.Build(factory)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(p.Nodes) != 3 {
		t.Fatalf("节点数 = %d, want 3", len(p.Nodes))
	}

	rctx := &core.RecommendContext{
		CustomerID: "c_1",
		History:    map[string]struct{}{"prod_1": {}},
	}
	out, err := p.Run(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 静态召回 5 个，prod_1 已购被滤掉，截断到 3
	if len(out) != 3 {
		t.Fatalf("结果数 = %d, want 3", len(out))
	}
	for _, it := range out {
		if it.ID == "prod_1" {
			t.Error("已购商品 prod_1 不应出现在结果中")
		}
	}
}

func TestDefaultFactory_Errors(t *testing.T) {
	factory := DefaultFactory()

	tests := []struct {
		name string
		node pipeline.NodeConfig
	}{
		{"unknown type", pipeline.NodeConfig{Type: "recall.nonexistent"}},
		{"embedding needs service wiring", pipeline.NodeConfig{Type: "recall.embedding"}},
		{"population without expr", pipeline.NodeConfig{Type: "filter", Config: map[string]any{
			"filters": []any{map[string]any{"type": "population"}},
		}}},
		{"invalid expr", pipeline.NodeConfig{Type: "filter", Config: map[string]any{
			"filters": []any{map[string]any{"type": "population", "expr": "((("}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &pipeline.Config{}
			cfg.Pipeline.Nodes = []pipeline.NodeConfig{tt.node}
			if _, err := cfg.Build(factory); err == nil {
				t.Error("应构建失败")
			}
		})
	}
}
