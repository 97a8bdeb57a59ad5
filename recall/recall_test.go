package recall

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rushteam/item2rec/bundle"
	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/index"
	"github.com/rushteam/item2rec/model"
)

func testBundle(t *testing.T) *bundle.Bundle {
	t.Helper()
	space := &model.EmbeddingSpace{
		Vectors: map[string][]float64{
			"sku_1": {1, 0},
			"sku_2": {0.9, 0.1},
			"sku_3": {0, 1},
			"sku_4": {0.1, 0.9},
		},
		Dimension: 2,
		Ranked:    []string{"sku_1", "sku_2", "sku_3", "sku_4"},
		Counts:    map[string]int{"sku_1": 5, "sku_2": 4, "sku_3": 3, "sku_4": 2},
	}
	idx, err := index.Build(space)
	if err != nil {
		t.Fatal(err)
	}
	return &bundle.Bundle{
		Version:   "20260101_000000",
		Dimension: 2,
		Space:     space,
		Index:     idx,
		CreatedAt: time.Now().UTC(),
	}
}

func TestEmbedding_Recall(t *testing.T) {
	r := &Embedding{Bundle: testBundle(t), TopK: 2}
	rctx := &core.RecommendContext{
		CustomerID: "c_1",
		History:    map[string]struct{}{"sku_1": {}},
	}

	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	// 超量检索：2×TopK = 4，封顶词表规模
	if len(items) != 4 {
		t.Fatalf("候选数 = %d, want 4", len(items))
	}
	// 查询向量 ≈ sku_1 的方向，sku_1 自己应排第一（已购过滤在下游）
	if items[0].ID != "sku_1" || items[1].ID != "sku_2" {
		t.Errorf("前两名 = %s, %s, want sku_1, sku_2", items[0].ID, items[1].ID)
	}

	for _, it := range items {
		if lbl, _ := it.GetLabel("recall_source"); lbl.Value != "embedding" {
			t.Errorf("recall_source = %s, want embedding", lbl.Value)
		}
		if it.Category() != "unknown" {
			t.Errorf("个性化候选品类 = %s, want unknown", it.Category())
		}
	}
}

func TestEmbedding_Recall_EmptySignals(t *testing.T) {
	b := testBundle(t)
	tests := []struct {
		name string
		r    *Embedding
		rctx *core.RecommendContext
	}{
		{"nil bundle", &Embedding{TopK: 3}, &core.RecommendContext{History: map[string]struct{}{"sku_1": {}}}},
		{"no history", &Embedding{Bundle: b, TopK: 3}, &core.RecommendContext{}},
		{"all oov history", &Embedding{Bundle: b, TopK: 3}, &core.RecommendContext{
			History: map[string]struct{}{"oov_1": {}, "oov_2": {}},
		}},
		{"nil rctx", &Embedding{Bundle: b, TopK: 3}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := tt.r.Recall(context.Background(), tt.rctx)
			if err != nil {
				t.Fatalf("Recall() error = %v", err)
			}
			if items != nil {
				t.Errorf("无信号时应返回 nil，实际 %v", items)
			}
		})
	}
}

func TestPopular_Recall(t *testing.T) {
	r := &Popular{Bundle: testBundle(t), TopK: 2}
	items, err := r.Recall(context.Background(), nil)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("候选数 = %d, want 2", len(items))
	}
	// 词表频次降序的前两名
	if items[0].ID != "sku_1" || items[1].ID != "sku_2" {
		t.Errorf("热门 = %s, %s, want sku_1, sku_2", items[0].ID, items[1].ID)
	}
	for _, it := range items {
		if it.Score != 0.7 {
			t.Errorf("热门分数 = %.2f, want 0.7", it.Score)
		}
		if it.Category() != "popular" {
			t.Errorf("热门品类 = %s, want popular", it.Category())
		}
	}

	// 无模型包时静默返回 nil
	empty := &Popular{TopK: 2}
	if items, err := empty.Recall(context.Background(), nil); err != nil || items != nil {
		t.Errorf("无模型包应返回 (nil, nil)，实际 (%v, %v)", items, err)
	}
}

func TestStatic_Recall(t *testing.T) {
	r := &Static{TopK: 4}
	items, err := r.Recall(context.Background(), nil)
	if err != nil {
		t.Fatalf("静态兜底不应失败: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("候选数 = %d, want 4", len(items))
	}

	wantScores := []float64{0.7, 0.6, 0.5, 0.4}
	for i, it := range items {
		wantID := fmt.Sprintf("prod_%d", i+1)
		if it.ID != wantID {
			t.Errorf("第 %d 条 = %s, want %s", i, it.ID, wantID)
		}
		if diff := it.Score - wantScores[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("第 %d 条分数 = %.2f, want %.2f", i, it.Score, wantScores[i])
		}
		if it.Category() != "general" {
			t.Errorf("静态品类 = %s, want general", it.Category())
		}
	}
}
