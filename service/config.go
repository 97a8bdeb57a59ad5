package service

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/item2rec/bundle"
	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/model"
	"github.com/rushteam/item2rec/registry"
)

// EngineConfig 是引擎的完整配置（YAML）。
//
// 示例：
//
//	model:
//	  dimension: 64
//	  window: 5
//	  min_count: 2
//	  epochs: 10
//	serving:
//	  top_k: 10
//	  history_timeout_ms: 500
//	bundle:
//	  key_prefix: bundle
type EngineConfig struct {
	Model   model.Config  `yaml:"model" json:"model"`
	Serving ServingConfig `yaml:"serving" json:"serving"`
	Bundle  BundleConfig  `yaml:"bundle" json:"bundle"`
}

// ServingConfig 是在线侧配置。
type ServingConfig struct {
	// TopK 默认返回条数
	TopK int `yaml:"top_k" json:"top_k"`

	// HistoryTimeoutMS 历史拉取超时（毫秒）
	HistoryTimeoutMS int `yaml:"history_timeout_ms" json:"history_timeout_ms"`

	// PopulationFilter 全局候选过滤表达式（CEL，可选）
	PopulationFilter string `yaml:"population_filter" json:"population_filter"`
}

// BundleConfig 是模型包存储配置。
type BundleConfig struct {
	// KeyPrefix 模型包键前缀，默认 "bundle"
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultEngineConfig 返回带默认值的配置。
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Model: model.DefaultConfig(),
		Serving: ServingConfig{
			TopK:             10,
			HistoryTimeoutMS: 500,
		},
		Bundle: BundleConfig{KeyPrefix: "bundle"},
	}
}

// LoadEngineConfig 从 YAML 文件加载配置，缺失字段取默认值。
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("service: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("service: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Engine 是配置装配出的完整引擎。
type Engine struct {
	Trainer     *Trainer
	Recommender *Recommender
	Handle      *bundle.Handle
	Registry    core.ModelVersionRegistry
}

// NewEngine 按配置把存储、事件源和历史服务装配成引擎。
// history 可为 nil（无历史服务，在线侧直接走热门/静态层）。
func NewEngine(
	cfg EngineConfig,
	kv core.KeyValueStore,
	source core.EventSource,
	history core.HistoryStore,
	logger zerolog.Logger,
) *Engine {
	store := &bundle.Store{KV: kv, KeyPrefix: cfg.Bundle.KeyPrefix}
	handle := bundle.NewHandle(store, logger)
	reg := registry.NewStoreRegistry(kv)

	rec := NewRecommender(handle, history, logger)
	if cfg.Serving.TopK > 0 {
		rec.TopK = cfg.Serving.TopK
	}
	if cfg.Serving.HistoryTimeoutMS > 0 {
		rec.HistoryTimeout = time.Duration(cfg.Serving.HistoryTimeoutMS) * time.Millisecond
	}
	rec.PopulationFilter = cfg.Serving.PopulationFilter

	return &Engine{
		Trainer: &Trainer{
			Source:   source,
			Bundles:  store,
			Registry: reg,
			Handle:   handle,
			Config:   cfg.Model,
			Logger:   logger,
		},
		Recommender: rec,
		Handle:      handle,
		Registry:    reg,
	}
}
