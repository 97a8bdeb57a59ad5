// Package bundle 管理模型包（ModelBundle）的持久化与在线加载。
//
// 模型包是部署的原子单元：{向量空间, 相似度索引, 位置映射, 维度,
// 版本号, 词表规模}。一次训练产出一个版本，写入后不再修改；在线侧
// 同一时刻最多加载一个版本（"当前模型包"），换版本是整体替换。
package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/index"
	"github.com/rushteam/item2rec/model"
)

// Bundle 是加载到内存中的一个模型包版本。
type Bundle struct {
	Version   string
	Dimension int
	Space     *model.EmbeddingSpace
	Index     *index.Flat
	CreatedAt time.Time
}

// VocabSize 返回模型包的词表规模。
func (b *Bundle) VocabSize() int {
	if b == nil || b.Space == nil {
		return 0
	}
	return b.Space.Size()
}

// meta 是模型包的元数据 blob。
type meta struct {
	Version   string    `json:"version"`
	Dimension int       `json:"dimension"`
	VocabSize int       `json:"vocab_size"`
	CreatedAt time.Time `json:"created_at"`
}

// NewVersion 由构建时间生成版本号。
// 格式保证字符串排序与时间顺序一致（20060102_150405，UTC）。
func NewVersion(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}

// Store 以 KeyValueStore 为后端的模型包存储。
//
// 布局：
//   - {prefix}:versions           有序集合，member=版本号，score=构建时间
//   - {prefix}:{version}:space    向量空间 JSON blob
//   - {prefix}:{version}:index    索引 JSON blob
//   - {prefix}:{version}:meta     元数据 JSON blob
//
// blob 写入是一次性的（版本号不复用），versions 集合最后写入，
// 因此读到版本号即意味着全部 blob 已就位。
type Store struct {
	KV core.KeyValueStore

	// KeyPrefix 存储 key 前缀，默认 "bundle"
	KeyPrefix string
}

func (s *Store) prefix() string {
	if s.KeyPrefix == "" {
		return "bundle"
	}
	return s.KeyPrefix
}

func (s *Store) key(version, part string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix(), version, part)
}

func (s *Store) versionsKey() string {
	return s.prefix() + ":versions"
}

// Save 持久化一个模型包版本。
func (s *Store) Save(ctx context.Context, b *Bundle) error {
	if s.KV == nil {
		return core.NewDomainError(core.ModuleBundle, core.ErrorCodeInvalidInput, "bundle: kv store is required")
	}
	if b == nil || b.Space == nil || b.Index == nil || b.Version == "" {
		return core.NewDomainError(core.ModuleBundle, core.ErrorCodeInvalidInput, "bundle: incomplete bundle")
	}

	spaceBlob, err := json.Marshal(b.Space)
	if err != nil {
		return fmt.Errorf("bundle: marshal space: %w", err)
	}
	indexBlob, err := json.Marshal(b.Index)
	if err != nil {
		return fmt.Errorf("bundle: marshal index: %w", err)
	}
	metaBlob, err := json.Marshal(meta{
		Version:   b.Version,
		Dimension: b.Dimension,
		VocabSize: b.VocabSize(),
		CreatedAt: b.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("bundle: marshal meta: %w", err)
	}

	blobs := map[string][]byte{
		s.key(b.Version, "space"): spaceBlob,
		s.key(b.Version, "index"): indexBlob,
		s.key(b.Version, "meta"):  metaBlob,
	}
	if err := s.KV.BatchSet(ctx, blobs); err != nil {
		return fmt.Errorf("bundle: write blobs: %w", err)
	}

	// 版本号最后登记，作为"该版本完整可读"的标记
	if err := s.KV.ZAdd(ctx, s.versionsKey(), float64(b.CreatedAt.UnixNano()), b.Version); err != nil {
		return fmt.Errorf("bundle: register version: %w", err)
	}
	return nil
}

// LatestVersion 返回最新的版本号；没有任何版本时返回 ("", nil)。
func (s *Store) LatestVersion(ctx context.Context) (string, error) {
	if s.KV == nil {
		return "", core.NewDomainError(core.ModuleBundle, core.ErrorCodeInvalidInput, "bundle: kv store is required")
	}
	versions, err := s.KV.ZRange(ctx, s.versionsKey(), 0, 0)
	if err != nil {
		return "", core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
			"bundle: list versions: "+err.Error())
	}
	if len(versions) == 0 {
		return "", nil
	}
	return versions[0], nil
}

// LoadLatest 加载最新版本的模型包。
//
// "没有模型包"是正常、可预期的状态，不是异常：不存在任何版本时
// 返回 (nil, nil)。读取失败、blob 损坏、維度不一致等一律返回
// BUNDLE_LOAD 错误，由调用方降级处理，绝不透传给推荐请求。
func (s *Store) LoadLatest(ctx context.Context) (*Bundle, error) {
	version, err := s.LatestVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, nil
	}
	return s.LoadVersion(ctx, version)
}

// LoadVersion 加载指定版本的模型包并做一致性校验。
func (s *Store) LoadVersion(ctx context.Context, version string) (*Bundle, error) {
	keys := []string{
		s.key(version, "space"),
		s.key(version, "index"),
		s.key(version, "meta"),
	}
	blobs, err := s.KV.BatchGet(ctx, keys)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
			"bundle: read blobs: "+err.Error())
	}
	for _, k := range keys {
		if _, ok := blobs[k]; !ok {
			return nil, core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
				"bundle: missing blob "+k)
		}
	}

	var m meta
	if err := json.Unmarshal(blobs[s.key(version, "meta")], &m); err != nil {
		return nil, core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
			"bundle: corrupt meta blob: "+err.Error())
	}

	space := &model.EmbeddingSpace{}
	if err := json.Unmarshal(blobs[s.key(version, "space")], space); err != nil {
		return nil, core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
			"bundle: corrupt space blob: "+err.Error())
	}

	idx := &index.Flat{}
	if err := json.Unmarshal(blobs[s.key(version, "index")], idx); err != nil {
		return nil, core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
			"bundle: corrupt index blob: "+err.Error())
	}

	// 加载期做模式校验：空间/索引/元数据必须互相一致
	if space.Dimension != m.Dimension || idx.Dimension() != m.Dimension {
		return nil, core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
			"bundle: dimension mismatch across blobs")
	}
	if idx.Size() != space.Size() || space.Size() != m.VocabSize {
		return nil, core.NewDomainError(core.ModuleBundle, core.ErrorCodeBundleLoad,
			"bundle: vocab size mismatch across blobs")
	}

	return &Bundle{
		Version:   m.Version,
		Dimension: m.Dimension,
		Space:     space,
		Index:     idx,
		CreatedAt: m.CreatedAt,
	}, nil
}
