// Package dsl 提供候选过滤表达式的解释执行，
// 使用 CEL (Common Expression Language) 实现。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/item2rec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是一条编译后的过滤表达式，可对多个候选重复求值。
//
// 表达式语法（CEL 标准语法），返回 true 表示候选保留：
//   - 基础：label.recall_source == "embedding"
//   - 数值：item.score > 0.5
//   - 逻辑：label.category == "popular" && item.score >= 0.7
//   - 前缀：item.id.startsWith("sku_")
type Program struct {
	prg cel.Program
}

// Compile 编译一条表达式。表达式必须求值为布尔。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: init cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program %q: %w", expr, err)
	}
	return &Program{prg: prg}, nil
}

// EvalItem 对单个候选求值。非布尔结果视为错误。
func (p *Program) EvalItem(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	labels := make(map[string]string, len(item.Labels))
	for k, lbl := range item.Labels {
		labels[k] = lbl.Value
	}

	vars := map[string]any{
		"item": map[string]any{
			"id":    item.ID,
			"score": item.Score,
		},
		"label": labels,
		"rctx":  rctxVars(rctx),
	}

	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("dsl: eval: %w", err)
	}

	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression result is %T, want bool", out.Value())
	}
	return keep, nil
}

func rctxVars(rctx *core.RecommendContext) map[string]any {
	if rctx == nil {
		return map[string]any{}
	}
	return map[string]any{
		"customer_id": rctx.CustomerID,
		"brand_id":    rctx.BrandID,
	}
}
