package bundle

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Handle 是在线侧"当前模型包"的持有者。
//
// 设计要点（取代进程级全局模型缓存）：
//   - 显式、可注入：由服务组件持有，不是隐藏的全局状态
//   - 换包即指针原子替换：在途请求继续持有旧包快照直到请求结束，
//     不会观测到半更新的结构；旧包在无引用后由 GC 回收
//   - Reload 幂等，可反复调用，不泄漏资源
type Handle struct {
	store  *Store
	logger zerolog.Logger
	cur    atomic.Pointer[Bundle]
}

// NewHandle 创建模型包持有者。
func NewHandle(store *Store, logger zerolog.Logger) *Handle {
	return &Handle{store: store, logger: logger}
}

// Current 返回当前模型包快照；没有加载任何版本时返回 nil。
// 每个请求取一次快照，整个请求期间只使用该快照。
func (h *Handle) Current() *Bundle {
	return h.cur.Load()
}

// Loaded 报告是否有模型包在内存中。
func (h *Handle) Loaded() bool {
	return h.cur.Load() != nil
}

// Version 返回当前模型包版本；未加载时返回空串。
func (h *Handle) Version() string {
	if b := h.cur.Load(); b != nil {
		return b.Version
	}
	return ""
}

// Reload 加载存储中的最新版本并原子替换当前模型包。
//
// 行为约定：
//   - 存储中没有任何版本：保持现状，返回 nil（"无包"是正常状态）
//   - 最新版本与当前版本相同：跳过加载（幂等）
//   - 加载失败：保留上一个完好版本继续服务，记录 error 日志并返回
//     BUNDLE_LOAD 错误供批处理调用方感知；在线调用方可忽略
func (h *Handle) Reload(ctx context.Context) error {
	latest, err := h.store.LatestVersion(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("bundle reload: list versions failed")
		return err
	}
	if latest == "" {
		h.logger.Debug().Msg("bundle reload: no version in store")
		return nil
	}
	if cur := h.cur.Load(); cur != nil && cur.Version == latest {
		return nil
	}

	b, err := h.store.LoadVersion(ctx, latest)
	if err != nil {
		h.logger.Error().Err(err).Str("version", latest).Msg("bundle reload failed, keeping previous bundle")
		return err
	}

	h.cur.Store(b)
	h.logger.Info().
		Str("version", b.Version).
		Int("vocab_size", b.VocabSize()).
		Int("dimension", b.Dimension).
		Msg("bundle loaded")
	return nil
}
