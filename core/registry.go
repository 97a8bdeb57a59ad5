package core

import (
	"context"
	"time"
)

// ModelVersion 是一次训练产出的版本记录。
type ModelVersion struct {
	ModelType    string             `json:"model_type"`    // 如 "recommendation"
	Version      string             `json:"version"`       // 排序即时间序的版本号
	Path         string             `json:"path"`          // 模型包存储位置（key 前缀）
	Metrics      map[string]float64 `json:"metrics"`       // 训练指标
	SampleCount  int                `json:"sample_count"`  // 训练样本（序列）数
	FeatureCount int                `json:"feature_count"` // 特征维度
	IsActive     bool               `json:"is_active"`     // 是否为当前生效版本
	CreatedAt    time.Time          `json:"created_at"`
}

// ModelVersionRegistry 是模型版本登记的领域接口。
//
// 不变量：每个 ModelType 同一时刻至多一个 IsActive=true 的版本；
// 登记新的 active 版本必须在同一次操作内将该类型的历史版本全部置为
// inactive（实现方负责原子性）。
type ModelVersionRegistry interface {
	// RecordVersion 登记一个版本；rec.IsActive 为 true 时接管 active 位
	RecordVersion(ctx context.Context, rec ModelVersion) error

	// ActiveVersion 返回该类型当前生效的版本记录
	ActiveVersion(ctx context.Context, modelType string) (*ModelVersion, error)

	// ListVersions 返回该类型的全部版本（按版本号降序）
	ListVersions(ctx context.Context, modelType string) ([]ModelVersion, error)
}
