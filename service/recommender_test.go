package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rushteam/item2rec/bundle"
	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/index"
	"github.com/rushteam/item2rec/model"
)

func trainedEngine(t *testing.T) (*Engine, func()) {
	t.Helper()
	engine, events, done := testEngine(t)
	seedEvents(t, events, 12)
	if _, err := engine.Trainer.Run(context.Background(), core.EventQuery{}); err != nil {
		done()
		t.Fatalf("训练失败: %v", err)
	}
	return engine, done
}

func TestRecommend_StaticTierWithoutBundle(t *testing.T) {
	engine, _, done := testEngine(t)
	defer done()

	recs := engine.Recommender.Recommend(context.Background(), Request{CustomerID: "c_1", TopK: 3})
	if len(recs) != 3 {
		t.Fatalf("结果数 = %d, want 3", len(recs))
	}

	// 静态兜底：prod_i，分数 0.7 起每位递减 0.1，品类 general
	for i, rec := range recs {
		wantID := fmt.Sprintf("prod_%d", i+1)
		wantScore := 0.8 - 0.1*float64(i+1)
		if rec.ItemID != wantID {
			t.Errorf("第 %d 条 = %s, want %s", i, rec.ItemID, wantID)
		}
		if rec.Score != wantScore {
			t.Errorf("第 %d 条分数 = %.2f, want %.2f", i, rec.Score, wantScore)
		}
		if rec.Category != "general" {
			t.Errorf("第 %d 条品类 = %s, want general", i, rec.Category)
		}
	}
}

func TestRecommend_PersonalizedTier(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	recs := engine.Recommender.Recommend(context.Background(), Request{CustomerID: "c_1", TopK: 3})
	if len(recs) == 0 {
		t.Fatal("老客户应得到个性化结果")
	}

	// 已购商品绝不出现在结果中
	purchased, err := engine.Trainer.Source.(core.HistoryStore).GetPurchasedItems(context.Background(), "c_1", "")
	if err != nil {
		t.Fatal(err)
	}
	owned := make(map[string]bool, len(purchased))
	for _, id := range purchased {
		owned[id] = true
	}
	for _, rec := range recs {
		if owned[rec.ItemID] {
			t.Errorf("已购商品 %s 不应被推荐", rec.ItemID)
		}
		if rec.Category != "unknown" {
			t.Errorf("个性化结果品类 = %s, want unknown", rec.Category)
		}
		if !strings.HasPrefix(rec.ItemID, "sku_") {
			t.Errorf("个性化结果应来自词表: %s", rec.ItemID)
		}
	}

	// 分数降序
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Score < recs[i].Score {
			t.Errorf("结果未按分数降序: %v", recs)
		}
	}
}

func TestRecommend_PopularTierForNewCustomer(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	recs := engine.Recommender.Recommend(context.Background(), Request{CustomerID: "stranger", TopK: 3})
	if len(recs) != 3 {
		t.Fatalf("结果数 = %d, want 3", len(recs))
	}
	for _, rec := range recs {
		if rec.Category != "popular" {
			t.Errorf("新客户结果品类 = %s, want popular", rec.Category)
		}
		if rec.Score != 0.7 {
			t.Errorf("热门层分数 = %.2f, want 0.7", rec.Score)
		}
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	first := engine.Recommender.Recommend(context.Background(), Request{CustomerID: "c_1", TopK: 5})
	for i := 0; i < 5; i++ {
		again := engine.Recommender.Recommend(context.Background(), Request{CustomerID: "c_1", TopK: 5})
		if len(again) != len(first) {
			t.Fatalf("两次请求结果数不一致: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("同一请求的结果应确定: %v vs %v", first, again)
			}
		}
	}
}

func TestRecommend_PopulationFilter(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	// 不可能满足的表达式：个性化层全部被滤掉，落入热门层
	recs := engine.Recommender.Recommend(context.Background(), Request{
		CustomerID:       "c_1",
		TopK:             3,
		PopulationFilter: `item.score > 100.0`,
	})
	if len(recs) == 0 {
		t.Fatal("过滤后为空应落入下一层，而不是返回空")
	}
	for _, rec := range recs {
		if rec.Category != "popular" {
			t.Errorf("全滤空后应来自热门层，实际品类 = %s", rec.Category)
		}
	}

	// 非法表达式：放弃过滤器而不是失败
	recs = engine.Recommender.Recommend(context.Background(), Request{
		CustomerID:       "c_1",
		TopK:             3,
		PopulationFilter: `not valid (CEL`,
	})
	if len(recs) == 0 {
		t.Error("非法过滤表达式不应让请求失败")
	}
}

type failingHistory struct{}

func (failingHistory) GetPurchasedItems(context.Context, string, string) ([]string, error) {
	return nil, errors.New("history service down")
}

func TestRecommend_NeverFails(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		prep func(r *Recommender)
	}{
		{"history service down", context.Background(), func(r *Recommender) {
			r.History = failingHistory{}
		}},
		{"no history service", context.Background(), func(r *Recommender) {
			r.History = nil
		}},
		{"cancelled context", cancelled, nil},
		{"nil handle", context.Background(), func(r *Recommender) {
			r.Handle = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := *engine.Recommender
			if tt.prep != nil {
				tt.prep(&rec)
			}
			recs := rec.Recommend(tt.ctx, Request{CustomerID: "c_1", TopK: 3})
			if len(recs) != 3 {
				t.Errorf("降级链路应总能产出结果，实际 %d 条", len(recs))
			}
		})
	}
}

// 个性化链路内的故障（而非"无历史"的正常落空）应直接降到
// 静态兜底，不经过热门层。
func TestRecommend_PersonalizedFailureServesStatic(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// c_1 有词表内历史，Tier A 会真正启动并在召回中失败
	recs := engine.Recommender.Recommend(cancelled, Request{CustomerID: "c_1", TopK: 3})
	if len(recs) != 3 {
		t.Fatalf("结果数 = %d, want 3", len(recs))
	}
	for i, rec := range recs {
		if rec.Category != "general" {
			t.Errorf("个性化链路故障应落到静态兜底，第 %d 条品类 = %s, want general", i, rec.Category)
		}
	}
}

// swapHistory 在请求进行中把模型包热切到新版本，再返回历史。
// 用于验证单个请求始终使用请求开始时的快照。
type swapHistory struct {
	t      *testing.T
	engine *Engine
	ids    []string
	v2     string
}

func (s *swapHistory) GetPurchasedItems(ctx context.Context, customerID, brandID string) ([]string, error) {
	s.t.Helper()

	at := time.Now().Add(time.Hour)
	s.v2 = bundle.NewVersion(at)
	space := &model.EmbeddingSpace{
		Vectors: map[string][]float64{
			"alt_1": {1, 0, 0, 0, 0, 0, 0, 0},
			"alt_2": {0, 1, 0, 0, 0, 0, 0, 0},
			"alt_3": {0, 0, 1, 0, 0, 0, 0, 0},
		},
		Dimension: 8,
		Ranked:    []string{"alt_1", "alt_2", "alt_3"},
		Counts:    map[string]int{"alt_1": 3, "alt_2": 2, "alt_3": 2},
	}
	idx, err := index.Build(space)
	if err != nil {
		s.t.Fatalf("构建替换索引失败: %v", err)
	}
	b := &bundle.Bundle{Version: s.v2, Dimension: 8, Space: space, Index: idx, CreatedAt: at}
	if err := s.engine.Trainer.Bundles.Save(context.Background(), b); err != nil {
		s.t.Fatalf("写入新版本失败: %v", err)
	}
	if err := s.engine.Handle.Reload(context.Background()); err != nil {
		s.t.Fatalf("热切新版本失败: %v", err)
	}
	return s.ids, nil
}

func TestRecommend_ConsistentAcrossReload(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	v1 := engine.Handle.Version()
	ids, err := engine.Trainer.Source.(core.HistoryStore).GetPurchasedItems(context.Background(), "c_1", "")
	if err != nil || len(ids) == 0 {
		t.Fatalf("取不到 c_1 的历史: %v %v", ids, err)
	}

	sw := &swapHistory{t: t, engine: engine, ids: ids}
	rec := *engine.Recommender
	rec.History = sw

	recs := rec.Recommend(context.Background(), Request{CustomerID: "c_1", TopK: 3})

	// 请求过程中确实发生了换版本
	if sw.v2 == "" || engine.Handle.Version() != sw.v2 || engine.Handle.Version() == v1 {
		t.Fatalf("热切未生效: handle=%s v1=%s v2=%s", engine.Handle.Version(), v1, sw.v2)
	}

	// 进行中的请求仍基于请求开始时的快照（v1 词表），分数在 [-1, 1]
	if len(recs) == 0 {
		t.Fatal("换版本期间的请求应得到个性化结果")
	}
	for _, r := range recs {
		if !strings.HasPrefix(r.ItemID, "sku_") {
			t.Errorf("结果 %s 应来自请求开始时的模型包，而不是新版本", r.ItemID)
		}
		if r.Score < -1 || r.Score > 1 {
			t.Errorf("个性化分数应落在 [-1, 1]: %s=%.4f", r.ItemID, r.Score)
		}
	}

	// 换版本之后的新请求使用新词表
	after := engine.Recommender.Recommend(context.Background(), Request{CustomerID: "stranger", TopK: 3})
	for _, r := range after {
		if !strings.HasPrefix(r.ItemID, "alt_") {
			t.Errorf("新请求结果 %s 应来自新版本词表", r.ItemID)
		}
	}
}

func TestRecommend_TopKDefaults(t *testing.T) {
	engine, done := trainedEngine(t)
	defer done()

	recs := engine.Recommender.Recommend(context.Background(), Request{CustomerID: "stranger"})
	if len(recs) == 0 || len(recs) > engine.Recommender.TopK {
		t.Errorf("默认 TopK 结果数 = %d, want (0, %d]", len(recs), engine.Recommender.TopK)
	}
}

func TestHealth(t *testing.T) {
	engine, events, done := testEngine(t)
	defer done()

	h := engine.Recommender.Health()
	if h.BundleLoaded || !h.Degraded || h.Version != "" {
		t.Errorf("未训练时 Health = %+v", h)
	}

	seedEvents(t, events, 12)
	result, err := engine.Trainer.Run(context.Background(), core.EventQuery{})
	if err != nil {
		t.Fatal(err)
	}

	h = engine.Recommender.Health()
	if !h.BundleLoaded || h.Degraded {
		t.Errorf("训练后 Health = %+v", h)
	}
	if h.Version != result.Version || h.VocabSize != result.VocabSize {
		t.Errorf("Health 版本/词表 = %s/%d, want %s/%d",
			h.Version, h.VocabSize, result.Version, result.VocabSize)
	}
}
