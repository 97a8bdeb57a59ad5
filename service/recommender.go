// Package service 把各模块组装成完整的推荐引擎：
// 离线训练任务（Trainer）与在线推荐组合器（Recommender）。
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/item2rec/bundle"
	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/filter"
	"github.com/rushteam/item2rec/pipeline"
	"github.com/rushteam/item2rec/recall"
	"github.com/rushteam/item2rec/rerank"
)

// Recommender 是在线推荐的组合器，按三层降级链路产出结果：
//
//	Tier A（个性化）：历史向量均值 → 索引内积检索 → 去已购 → TopN
//	Tier B（热门）  ：词表频次前列，面向无历史/全 OOV 客户
//	Tier C（静态）  ：固定兜底列表，模型包缺失时也能响应
//
// Recommend 绝不返回错误。降级规则区分"落空"与"故障"：
// 无词表内历史（含历史拉取失败/超时导致的空历史）属于正常落空，
// 走 Tier B；个性化链路内的执行错误直接降到 Tier C 静态兜底。
// 两种情况都记日志，调用方总能拿到结果。
type Recommender struct {
	// Handle 模型包热更新句柄；每个请求取一次快照，请求内不变
	Handle *bundle.Handle

	// History 客户已购历史来源；nil 表示无历史服务（直接走 Tier B/C）
	History core.HistoryStore

	// Logger 降级与故障日志
	Logger zerolog.Logger

	// TopK 默认返回条数，默认 10
	TopK int

	// HistoryTimeout 历史拉取超时，超时降级而非失败，默认 500ms
	HistoryTimeout time.Duration

	// PopulationFilter 全局候选过滤表达式；请求级表达式优先
	PopulationFilter string
}

// Request 是单次推荐请求。
type Request struct {
	CustomerID string
	BrandID    string

	// TopK <= 0 时使用 Recommender.TopK
	TopK int

	// PopulationFilter 候选过滤表达式（CEL），空串表示不过滤。
	// 表达式编译失败时放弃该过滤器，不影响请求本身。
	PopulationFilter string
}

// Health 是引擎的健康快照。
type Health struct {
	BundleLoaded bool   `json:"bundle_loaded"`
	Version      string `json:"version"`
	VocabSize    int    `json:"vocab_size"`
	Degraded     bool   `json:"degraded"`
}

func NewRecommender(handle *bundle.Handle, history core.HistoryStore, logger zerolog.Logger) *Recommender {
	return &Recommender{
		Handle:         handle,
		History:        history,
		Logger:         logger,
		TopK:           10,
		HistoryTimeout: 500 * time.Millisecond,
	}
}

func (r *Recommender) topK(req Request) int {
	if req.TopK > 0 {
		return req.TopK
	}
	if r.TopK > 0 {
		return r.TopK
	}
	return 10
}

// Recommend 执行三层降级链路，总是返回非空结果（除非 topK 为 0）。
func (r *Recommender) Recommend(ctx context.Context, req Request) []core.Recommendation {
	topK := r.topK(req)
	snapshot := r.snapshot()

	rctx := &core.RecommendContext{
		CustomerID: req.CustomerID,
		BrandID:    req.BrandID,
	}
	r.loadHistory(ctx, rctx)

	populationExpr := req.PopulationFilter
	if populationExpr == "" {
		populationExpr = r.PopulationFilter
	}

	// Tier A：个性化。链路内出错（召回/过滤/超时）直接落到
	// Tier C；只有"无词表内历史"这种正常落空才走 Tier B。
	items, err := r.personalized(ctx, rctx, snapshot, topK, populationExpr)
	if err != nil {
		r.Logger.Warn().
			Str("customer_id", req.CustomerID).
			Str("tier", "static").
			Err(err).
			Msg("personalized pipeline failed, serving static fallback")
		return r.static(ctx, rctx, topK)
	}
	if len(items) > 0 {
		return toRecommendations(items)
	}

	// Tier B：热门
	if items := r.popular(ctx, rctx, snapshot, topK); len(items) > 0 {
		r.Logger.Info().
			Str("customer_id", req.CustomerID).
			Str("tier", "popular").
			Msg("personalized recall empty, serving popular items")
		return toRecommendations(items)
	}

	// Tier C：静态兜底
	r.Logger.Warn().
		Str("customer_id", req.CustomerID).
		Str("tier", "static").
		Bool("bundle_loaded", snapshot != nil).
		Msg("no model available, serving static fallback")
	return r.static(ctx, rctx, topK)
}

func (r *Recommender) static(ctx context.Context, rctx *core.RecommendContext, topK int) []core.Recommendation {
	items, _ := (&recall.Static{TopK: topK}).Recall(ctx, rctx)
	return toRecommendations(items)
}

// Health 返回引擎健康快照。模型包缺失视为降级状态。
func (r *Recommender) Health() Health {
	snapshot := r.snapshot()
	h := Health{}
	if snapshot != nil {
		h.BundleLoaded = true
		h.Version = snapshot.Version
		h.VocabSize = snapshot.VocabSize()
	}
	h.Degraded = !h.BundleLoaded
	return h
}

func (r *Recommender) snapshot() *bundle.Bundle {
	if r.Handle == nil {
		return nil
	}
	return r.Handle.Current()
}

// loadHistory 拉取客户已购集合，挂到 rctx 上。
// 失败或超时只记日志：无历史会让 Tier A 自然落空，链路继续。
func (r *Recommender) loadHistory(ctx context.Context, rctx *core.RecommendContext) {
	if r.History == nil {
		return
	}

	timeout := r.HistoryTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ids, err := r.History.GetPurchasedItems(hctx, rctx.CustomerID, rctx.BrandID)
	if err != nil {
		r.Logger.Warn().
			Str("customer_id", rctx.CustomerID).
			Err(err).
			Msg("purchase history unavailable, degrading to popular tier")
		return
	}
	if len(ids) == 0 {
		return
	}

	history := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		history[id] = struct{}{}
	}
	rctx.History = history
}

// personalized 跑 Tier A 的完整 Pipeline：召回 → 过滤 → TopN。
// 空结果表示"无个性化信号"（正常落空，走 Tier B）；
// 非 nil 错误表示链路内故障，调用方应直接降到静态兜底。
func (r *Recommender) personalized(
	ctx context.Context,
	rctx *core.RecommendContext,
	snapshot *bundle.Bundle,
	topK int,
	populationExpr string,
) ([]*core.Item, error) {
	if snapshot == nil || len(rctx.History) == 0 {
		return nil, nil
	}

	filters := []filter.Filter{&filter.Purchased{}}
	if populationExpr != "" {
		pf, err := filter.NewPopulation(populationExpr)
		if err != nil {
			r.Logger.Warn().
				Str("expr", populationExpr).
				Err(err).
				Msg("population filter rejected, serving unfiltered candidates")
		} else {
			filters = append(filters, pf)
		}
	}

	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.Embedding{Bundle: snapshot, TopK: topK},
			&filter.FilterNode{Filters: filters},
			&rerank.TopN{N: topK},
		},
	}
	return p.Run(ctx, rctx, nil)
}

func (r *Recommender) popular(
	ctx context.Context,
	rctx *core.RecommendContext,
	snapshot *bundle.Bundle,
	topK int,
) []*core.Item {
	items, err := (&recall.Popular{Bundle: snapshot, TopK: topK}).Recall(ctx, rctx)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("popular recall failed, degrading to static tier")
		return nil
	}
	return items
}

func toRecommendations(items []*core.Item) []core.Recommendation {
	out := make([]core.Recommendation, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, it.ToRecommendation())
	}
	return out
}
