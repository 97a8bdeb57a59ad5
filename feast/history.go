package feast

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rushteam/item2rec/core"
)

// HistoryProvider 通过 Feast 在线特征读取客户购买历史，
// 实现 core.HistoryStore。
//
// 约定特征形态：purchase_history:product_ids 为字符串列表特征，
// 实体键为 customer_id。品牌隔离（brand_id）由上游物化到
// 各品牌项目（Project）中，查询时按客户端 Project 区分。
type HistoryProvider struct {
	Client Client

	// Feature 默认 "purchase_history:product_ids"
	Feature string

	// EntityKey 默认 "customer_id"
	EntityKey string
}

var _ core.HistoryStore = (*HistoryProvider)(nil)

func NewHistoryProvider(client Client) *HistoryProvider {
	return &HistoryProvider{
		Client:    client,
		Feature:   "purchase_history:product_ids",
		EntityKey: "customer_id",
	}
}

func (p *HistoryProvider) feature() string {
	if p.Feature != "" {
		return p.Feature
	}
	return "purchase_history:product_ids"
}

func (p *HistoryProvider) entityKey() string {
	if p.EntityKey != "" {
		return p.EntityKey
	}
	return "customer_id"
}

// GetPurchasedItems 返回客户已购商品 ID 集合（实现 core.HistoryStore）。
// 特征缺失视为"无历史"，返回空集合而非错误。
func (p *HistoryProvider) GetPurchasedItems(ctx context.Context, customerID, brandID string) ([]string, error) {
	resp, err := p.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   []string{p.feature()},
		EntityRows: []map[string]any{{p.entityKey(): customerID}},
		Project:    brandID,
	})
	if err != nil {
		return nil, fmt.Errorf("feast: purchase history for %s: %w", customerID, err)
	}
	if len(resp.FeatureVectors) == 0 {
		return nil, nil
	}

	raw, ok := resp.FeatureVectors[0].Values[p.feature()]
	if !ok || raw == nil {
		return nil, nil
	}
	return dedupeIDs(raw), nil
}

// dedupeIDs 将列表特征值转为去重后的商品 ID 切片，保持首次出现顺序。
func dedupeIDs(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		var id string
		switch v := it.(type) {
		case string:
			id = v
		case int64:
			id = strconv.FormatInt(v, 10)
		case float64:
			id = strconv.FormatInt(int64(v), 10)
		default:
			continue
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
