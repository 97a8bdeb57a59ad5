package core

import (
	"context"
	"time"
)

// PurchaseEvent 是一条原始购买事件。
// Payload 是半结构化的 JSON 原文，商品信息的承载形态因接入方而异
// （items / line_items / products / product_id），由 extract 包解析。
type PurchaseEvent struct {
	CustomerID string    `json:"customer_id"`
	BrandID    string    `json:"brand_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    []byte    `json:"payload"`
}

// EventQuery 是购买事件的查询条件。零值字段表示不过滤。
type EventQuery struct {
	CustomerID string    // 仅拉取该客户的事件
	BrandID    string    // 仅拉取该品牌的事件
	Since      time.Time // 仅拉取该时间之后的事件
	Limit      int       // 最多返回条数（0 表示不限制）
}

// EventSource 是购买事件来源的领域接口（外部协作方）。
//
// 约定：返回结果按 (CustomerID, Timestamp) 升序排列，
// 序列抽取依赖该顺序构造客户的时间序购买序列。
type EventSource interface {
	// FetchPurchaseEvents 拉取购买事件
	FetchPurchaseEvents(ctx context.Context, q EventQuery) ([]PurchaseEvent, error)
}

// HistoryStore 是客户已购商品查询的领域接口（外部协作方）。
//
// 在线推荐链路每个请求调用一次：结果同时用于构造查询向量与过滤已购。
// 调用方通过 ctx 控制超时；超时视为"无历史"触发降级，不是硬失败。
type HistoryStore interface {
	// GetPurchasedItems 返回客户已购商品 ID 集合（去重，无顺序保证）
	GetPurchasedItems(ctx context.Context, customerID, brandID string) ([]string, error)
}
