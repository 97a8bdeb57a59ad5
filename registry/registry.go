// Package registry 提供模型版本登记簿的 KV 存储实现。
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/item2rec/core"
)

// StoreRegistry 基于 core.KeyValueStore 的模型版本登记簿。
//
// 键布局：
//   - {prefix}:{model_type}:{version} -> ModelVersion JSON
//   - {prefix}:{model_type}:versions  -> zset，score 为创建时间戳
//
// 不变量：同一 model_type 下至多一个 IsActive 版本。
// 激活新版本时，旧活跃版本在同一次 RecordVersion 内被置为非活跃。
type StoreRegistry struct {
	KV core.KeyValueStore
	// KeyPrefix 默认 "registry:model"
	KeyPrefix string

	mu sync.Mutex
}

var _ core.ModelVersionRegistry = (*StoreRegistry)(nil)

func NewStoreRegistry(kv core.KeyValueStore) *StoreRegistry {
	return &StoreRegistry{KV: kv, KeyPrefix: "registry:model"}
}

func (r *StoreRegistry) prefix() string {
	if r.KeyPrefix != "" {
		return r.KeyPrefix
	}
	return "registry:model"
}

func (r *StoreRegistry) versionKey(modelType, version string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix(), modelType, version)
}

func (r *StoreRegistry) indexKey(modelType string) string {
	return fmt.Sprintf("%s:%s:versions", r.prefix(), modelType)
}

// RecordVersion 登记一个新版本。rec.IsActive 为 true 时，
// 同一 model_type 下原有活跃版本会被置为非活跃后再写入新版本。
func (r *StoreRegistry) RecordVersion(ctx context.Context, rec core.ModelVersion) error {
	if rec.ModelType == "" || rec.Version == "" {
		return core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput,
			"model version requires model_type and version")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.IsActive {
		if err := r.deactivateAll(ctx, rec.ModelType); err != nil {
			return err
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("registry: marshal version %s: %w", rec.Version, err)
	}
	if err := r.KV.Set(ctx, r.versionKey(rec.ModelType, rec.Version), data, 0); err != nil {
		return fmt.Errorf("registry: save version %s: %w", rec.Version, err)
	}
	if err := r.KV.ZAdd(ctx, r.indexKey(rec.ModelType), float64(rec.CreatedAt.UnixNano()), rec.Version); err != nil {
		return fmt.Errorf("registry: index version %s: %w", rec.Version, err)
	}
	return nil
}

// ActiveVersion 返回当前活跃版本；无活跃版本时返回 NOT_FOUND。
func (r *StoreRegistry) ActiveVersion(ctx context.Context, modelType string) (*core.ModelVersion, error) {
	versions, err := r.list(ctx, modelType)
	if err != nil {
		return nil, err
	}
	for i := range versions {
		if versions[i].IsActive {
			mv := versions[i]
			return &mv, nil
		}
	}
	return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeNotFound,
		fmt.Sprintf("no active version for model type %q", modelType))
}

// ListVersions 按创建时间降序返回全部版本。
func (r *StoreRegistry) ListVersions(ctx context.Context, modelType string) ([]core.ModelVersion, error) {
	return r.list(ctx, modelType)
}

func (r *StoreRegistry) list(ctx context.Context, modelType string) ([]core.ModelVersion, error) {
	names, err := r.KV.ZRange(ctx, r.indexKey(modelType), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("registry: list versions: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, r.versionKey(modelType, name))
	}
	blobs, err := r.KV.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("registry: load versions: %w", err)
	}

	versions := make([]core.ModelVersion, 0, len(names))
	for _, key := range keys {
		data, ok := blobs[key]
		if !ok {
			continue
		}
		var mv core.ModelVersion
		if err := json.Unmarshal(data, &mv); err != nil {
			continue
		}
		versions = append(versions, mv)
	}
	sort.Slice(versions, func(i, j int) bool {
		if !versions[i].CreatedAt.Equal(versions[j].CreatedAt) {
			return versions[i].CreatedAt.After(versions[j].CreatedAt)
		}
		return versions[i].Version > versions[j].Version
	})
	return versions, nil
}

func (r *StoreRegistry) deactivateAll(ctx context.Context, modelType string) error {
	versions, err := r.list(ctx, modelType)
	if err != nil {
		return err
	}
	for i := range versions {
		if !versions[i].IsActive {
			continue
		}
		versions[i].IsActive = false
		data, err := json.Marshal(versions[i])
		if err != nil {
			return fmt.Errorf("registry: marshal version %s: %w", versions[i].Version, err)
		}
		if err := r.KV.Set(ctx, r.versionKey(modelType, versions[i].Version), data, 0); err != nil {
			return fmt.Errorf("registry: deactivate version %s: %w", versions[i].Version, err)
		}
	}
	return nil
}
