package extract

import (
	"context"
	"sort"

	"github.com/rushteam/item2rec/core"
)

// Sequence 是一个客户按时间升序的购买商品序列。
// 不变量：len(Items) >= 2（由 Extractor 保证，短序列不产出）。
type Sequence struct {
	CustomerID string
	Items      []string
}

// Stats 是一次抽取的统计信息，用于训练任务的汇报与观测。
type Stats struct {
	Events        int // 处理的事件数
	SkippedEvents int // payload 解析失败而跳过的事件数
	Customers     int // 产出序列的客户数
	TotalItems    int // 序列内商品总数（含重复）
}

// Extractor 从购买事件抽取训练用的商品序列。
type Extractor struct {
	Source core.EventSource
}

// Extract 拉取事件并产出客户序列。
//   - 事件按 (customer, timestamp) 升序到达，逐客户累积商品 ID
//   - 单个事件 payload 解析失败只计入 SkippedEvents
//   - 产出的序列按 CustomerID 排序，保证同一数据集的抽取结果确定
func (e *Extractor) Extract(ctx context.Context, q core.EventQuery) ([]Sequence, *Stats, error) {
	if e.Source == nil {
		return nil, nil, core.NewDomainError(core.ModuleExtract, core.ErrorCodeInvalidInput,
			"extract: event source is required")
	}

	events, err := e.Source.FetchPurchaseEvents(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	return FromEvents(events)
}

// FromEvents 从已拉取的事件列表产出客户序列（事件需按时间升序）。
func FromEvents(events []core.PurchaseEvent) ([]Sequence, *Stats, error) {
	stats := &Stats{Events: len(events)}
	buckets := make(map[string][]string)

	for _, ev := range events {
		if ev.CustomerID == "" {
			continue
		}
		ids, err := ExtractItemIDs(ev.Payload)
		if err != nil {
			// 坏 payload 只影响这一条事件
			stats.SkippedEvents++
			continue
		}
		if len(ids) > 0 {
			buckets[ev.CustomerID] = append(buckets[ev.CustomerID], ids...)
		}
	}

	sequences := make([]Sequence, 0, len(buckets))
	for customerID, items := range buckets {
		if len(items) < 2 {
			// 不足 2 个商品没有共现信号，整个客户丢弃
			continue
		}
		sequences = append(sequences, Sequence{CustomerID: customerID, Items: items})
	}

	sort.Slice(sequences, func(i, j int) bool {
		return sequences[i].CustomerID < sequences[j].CustomerID
	})

	stats.Customers = len(sequences)
	for _, seq := range sequences {
		stats.TotalItems += len(seq.Items)
	}
	return sequences, stats, nil
}
