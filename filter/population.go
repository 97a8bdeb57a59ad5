package filter

import (
	"context"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/pkg/dsl"
)

// Population 是人群/候选过滤器，基于一条 CEL 表达式。
// 表达式返回 true 表示候选保留，false 表示剔除。
//
// 使用场景：
//   - 按召回来源圈选：label.recall_source == "embedding"
//   - 按分数下限过滤：item.score > 0.3
//   - 按品类剔除：label.category != "general"
type Population struct {
	prog *dsl.Program
}

// NewPopulation 编译表达式并构建过滤器。表达式非法时返回错误，
// 由调用方决定降级策略（通常为放弃该过滤器而非整条请求失败）。
func NewPopulation(expr string) (*Population, error) {
	prog, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Population{prog: prog}, nil
}

func (f *Population) Name() string {
	return "filter.population"
}

func (f *Population) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return false, nil
	}
	keep, err := f.prog.EvalItem(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
