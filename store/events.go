package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/extract"
)

// EventStore 以 KeyValueStore 为后端的购买事件存储。
// 同时实现 core.EventSource（离线抽取）与 core.HistoryStore（在线已购查询）。
//
// 布局：
//   - {prefix}:customers        有序集合，member=客户 ID，score=首次出现时间
//   - {prefix}:{customerID}     有序集合，member=事件 JSON，score=事件时间戳
//
// 事件在客户维度按时间戳排序存放，离线抽取按时间升序回放，
// 在线已购查询按时间降序取最近 HistoryLimit 条。
type EventStore struct {
	KV core.KeyValueStore

	// KeyPrefix 存储 key 前缀，默认 "events:purchase"
	KeyPrefix string

	// HistoryLimit 在线已购查询最多回看的事件条数，默认 100
	HistoryLimit int
}

type storedEvent struct {
	BrandID   string `json:"brand_id,omitempty"`
	Timestamp int64  `json:"ts"` // unix nano
	Payload   []byte `json:"payload"`
}

func (s *EventStore) prefix() string {
	if s.KeyPrefix == "" {
		return "events:purchase"
	}
	return s.KeyPrefix
}

func (s *EventStore) customerKey(customerID string) string {
	return s.prefix() + ":" + customerID
}

func (s *EventStore) customersKey() string {
	return s.prefix() + ":customers"
}

// Append 写入一条购买事件。
func (s *EventStore) Append(ctx context.Context, ev core.PurchaseEvent) error {
	if s.KV == nil || ev.CustomerID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			"store: kv and customer id are required")
	}

	blob, err := json.Marshal(storedEvent{
		BrandID:   ev.BrandID,
		Timestamp: ev.Timestamp.UnixNano(),
		Payload:   ev.Payload,
	})
	if err != nil {
		return err
	}

	score := float64(ev.Timestamp.UnixNano())
	if err := s.KV.ZAdd(ctx, s.customerKey(ev.CustomerID), score, string(blob)); err != nil {
		return err
	}
	// 首次出现时间作为 score；重复 ZAdd 只会刷新 score，无碍客户枚举
	return s.KV.ZAdd(ctx, s.customersKey(), score, ev.CustomerID)
}

// FetchPurchaseEvents 实现 core.EventSource。
// 返回按 (customerID, timestamp) 升序排列的事件。
func (s *EventStore) FetchPurchaseEvents(ctx context.Context, q core.EventQuery) ([]core.PurchaseEvent, error) {
	if s.KV == nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: kv store is required")
	}

	var customers []string
	if q.CustomerID != "" {
		customers = []string{q.CustomerID}
	} else {
		all, err := s.KV.ZRangeAsc(ctx, s.customersKey(), 0, -1)
		if err != nil {
			return nil, err
		}
		customers = all
		sort.Strings(customers)
	}

	var out []core.PurchaseEvent
	for _, customerID := range customers {
		members, err := s.KV.ZRangeAsc(ctx, s.customerKey(customerID), 0, -1)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			ev, ok := s.decode(customerID, member)
			if !ok {
				continue
			}
			if q.BrandID != "" && ev.BrandID != q.BrandID {
				continue
			}
			if !q.Since.IsZero() && ev.Timestamp.Before(q.Since) {
				continue
			}
			out = append(out, ev)
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// GetPurchasedItems 实现 core.HistoryStore。
// 回看客户最近 HistoryLimit 条事件，抽取商品 ID 并去重。
func (s *EventStore) GetPurchasedItems(ctx context.Context, customerID, brandID string) ([]string, error) {
	if s.KV == nil || customerID == "" {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			"store: kv and customer id are required")
	}

	limit := s.HistoryLimit
	if limit <= 0 {
		limit = 100
	}

	// 降序取最近 limit 条
	members, err := s.KV.ZRange(ctx, s.customerKey(customerID), 0, int64(limit-1))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var items []string
	for _, member := range members {
		ev, ok := s.decode(customerID, member)
		if !ok {
			continue
		}
		if brandID != "" && ev.BrandID != brandID {
			continue
		}
		ids, err := extract.ExtractItemIDs(ev.Payload)
		if err != nil {
			// 坏 payload 跳过，与离线抽取同一策略
			continue
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			items = append(items, id)
		}
	}
	return items, nil
}

func (s *EventStore) decode(customerID, member string) (core.PurchaseEvent, bool) {
	var se storedEvent
	if err := json.Unmarshal([]byte(member), &se); err != nil {
		return core.PurchaseEvent{}, false
	}
	return core.PurchaseEvent{
		CustomerID: customerID,
		BrandID:    se.BrandID,
		Timestamp:  time.Unix(0, se.Timestamp),
		Payload:    se.Payload,
	}, true
}

var (
	_ core.EventSource  = (*EventStore)(nil)
	_ core.HistoryStore = (*EventStore)(nil)
)
