// Package extract 从购买事件的半结构化 payload 中抽取商品序列。
//
// 设计要点：
//   - payload 形态不统一（接入方各异），按固定优先级尝试一组具名抽取策略
//   - 单个事件解析失败只跳过该事件，绝不中断整个人群的抽取
//   - 客户序列长度 < 2 没有共现信号，整体丢弃
package extract

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/rushteam/item2rec/core"
)

// Strategy 是一种 payload 形态的抽取策略。
// 返回 (ids, true) 表示该形态命中；(nil, false) 表示该形态不存在。
type Strategy struct {
	// Name 策略名（payload 中的承载形态），用于观测与测试
	Name string

	// Extract 从已解析的 payload 中抽取商品 ID 列表
	Extract func(payload map[string]any) ([]string, bool)

	// Fallback 为 true 时，仅在所有非 Fallback 策略都未产出任何 ID 时生效
	// （对应单个顶层 product_id 字段的形态）
	Fallback bool
}

// Strategies 返回默认的抽取策略列表，按固定优先级排列。
//
// 支持的四种形态：
//  1. "items"      —— 商品对象列表
//  2. "line_items" —— 商品对象列表（订单行形态）
//  3. "products"   —— 列表元素可以是对象，也可以是裸 ID 字符串
//  4. "product_id" —— 顶层单字段，仅在前三种都未产出时使用
//
// 列表形态是累积的：一个 payload 同时携带 items 和 line_items 时，
// 两者抽出的 ID 都会计入（与线上事件的真实形态一致）。
func Strategies() []Strategy {
	return []Strategy{
		{Name: "items", Extract: listStrategy("items", false)},
		{Name: "line_items", Extract: listStrategy("line_items", false)},
		{Name: "products", Extract: listStrategy("products", true)},
		{Name: "product_id", Fallback: true, Extract: func(payload map[string]any) ([]string, bool) {
			id, ok := itemID(payload["product_id"])
			if !ok {
				return nil, false
			}
			return []string{id}, true
		}},
	}
}

// ExtractItemIDs 按策略列表从一条事件 payload 中抽取商品 ID。
// payload 无法解析为 JSON 对象时返回 PARSE 错误（调用方跳过该事件）。
func ExtractItemIDs(payload []byte) ([]string, error) {
	var parsed map[string]any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, core.NewDomainError(core.ModuleExtract, core.ErrorCodeParse,
			"extract: malformed event payload: "+err.Error())
	}
	return extractFromParsed(parsed), nil
}

func extractFromParsed(payload map[string]any) []string {
	var ids []string
	var fallbacks []Strategy

	for _, s := range Strategies() {
		if s.Fallback {
			fallbacks = append(fallbacks, s)
			continue
		}
		if found, ok := s.Extract(payload); ok {
			ids = append(ids, found...)
		}
	}

	// 顶层 product_id 只在列表形态都未产出时兜底
	if len(ids) == 0 {
		for _, s := range fallbacks {
			if found, ok := s.Extract(payload); ok {
				ids = append(ids, found...)
				break
			}
		}
	}

	return ids
}

// listStrategy 构造列表形态的抽取策略。
// 列表元素是对象时，ID 取 product_id / id / sku 中第一个非空字段；
// 裸字符串元素只有 products 形态接受（bareStrings），
// items / line_items 中的裸字符串不是合法条目，跳过。
func listStrategy(key string, bareStrings bool) func(payload map[string]any) ([]string, bool) {
	return func(payload map[string]any) ([]string, bool) {
		raw, ok := payload[key].([]any)
		if !ok {
			return nil, false
		}

		ids := make([]string, 0, len(raw))
		for _, entry := range raw {
			switch e := entry.(type) {
			case map[string]any:
				for _, field := range []string{"product_id", "id", "sku"} {
					if id, ok := itemID(e[field]); ok {
						ids = append(ids, id)
						break
					}
				}
			case string:
				if bareStrings && e != "" {
					ids = append(ids, e)
				}
			}
		}
		return ids, true
	}
}

// itemID 将任意 JSON 值转为商品 ID 字符串。
// 数值型 ID（JSON number）转为十进制串，与上游 str(product_id) 的行为一致；
// 数值 0 与空串一样视为"无 ID"，落到下一个候选字段。
func itemID(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return "", false
		}
		return val, true
	case float64:
		if val == 0 {
			return "", false
		}
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}
