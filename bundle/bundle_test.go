package bundle

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/index"
	"github.com/rushteam/item2rec/model"
	"github.com/rushteam/item2rec/store"
)

func testBundle(t *testing.T, version string) *Bundle {
	t.Helper()
	space := &model.EmbeddingSpace{
		Vectors: map[string][]float64{
			"sku_1": {1, 0},
			"sku_2": {0.8, 0.2},
			"sku_3": {0, 1},
		},
		Dimension: 2,
		Ranked:    []string{"sku_1", "sku_2", "sku_3"},
		Counts:    map[string]int{"sku_1": 3, "sku_2": 2, "sku_3": 2},
	}
	idx, err := index.Build(space)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return &Bundle{
		Version:   version,
		Dimension: 2,
		Space:     space,
		Index:     idx,
		CreatedAt: time.Now().UTC(),
	}
}

func TestNewVersion(t *testing.T) {
	ts := time.Date(2026, 3, 15, 9, 30, 45, 0, time.UTC)
	if got := NewVersion(ts); got != "20260315_093045" {
		t.Errorf("NewVersion() = %s, want 20260315_093045", got)
	}

	// 版本号字符串排序与时间顺序一致
	earlier := NewVersion(ts.Add(-time.Hour))
	if !(earlier < NewVersion(ts)) {
		t.Error("较早时间的版本号应在字典序上更小")
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := &Store{KV: kv}

	b := testBundle(t, "20260101_000000")
	if err := s.Save(ctx, b); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadLatest() 返回 nil")
	}
	if loaded.Version != b.Version {
		t.Errorf("Version = %s, want %s", loaded.Version, b.Version)
	}
	if loaded.VocabSize() != 3 || loaded.Dimension != 2 {
		t.Errorf("vocab=%d dim=%d, want 3/2", loaded.VocabSize(), loaded.Dimension)
	}

	// 还原后的索引检索结果与原索引一致
	query := index.Normalize([]float64{1, 0})
	orig := b.Index.Search(query, 3)
	got := loaded.Index.Search(query, 3)
	if len(got) != len(orig) {
		t.Fatalf("结果数不一致: %d vs %d", len(got), len(orig))
	}
	for i := range orig {
		if got[i].ItemID != orig[i].ItemID {
			t.Errorf("第 %d 名 = %s, want %s", i, got[i].ItemID, orig[i].ItemID)
		}
	}
}

func TestStore_LoadLatest_Absent(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := &Store{KV: kv}

	b, err := s.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("没有任何版本应返回 (nil, nil)，实际 err = %v", err)
	}
	if b != nil {
		t.Errorf("没有任何版本应返回 nil bundle，实际 %+v", b)
	}
}

func TestStore_LatestVersionPicksNewest(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := &Store{KV: kv}

	old := testBundle(t, "20260101_000000")
	old.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := testBundle(t, "20260201_000000")
	newer.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, newer); err != nil {
		t.Fatal(err)
	}

	version, err := s.LatestVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if version != "20260201_000000" {
		t.Errorf("LatestVersion() = %s, want 20260201_000000", version)
	}
}

func TestStore_LoadVersion_MissingBlob(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := &Store{KV: kv}

	_, err := s.LoadVersion(ctx, "20260101_000000")
	if !core.IsBundleLoad(err) {
		t.Fatalf("blob 缺失应返回 BUNDLE_LOAD，实际: %v", err)
	}
}

func TestStore_LoadVersion_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := &Store{KV: kv}

	b := testBundle(t, "20260101_000000")
	if err := s.Save(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, s.key(b.Version, "space"), []byte("garbage"), 0); err != nil {
		t.Fatal(err)
	}

	_, err := s.LoadVersion(ctx, b.Version)
	if !core.IsBundleLoad(err) {
		t.Fatalf("损坏的 blob 应返回 BUNDLE_LOAD，实际: %v", err)
	}
}

func TestStore_Save_Incomplete(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	s := &Store{KV: kv}

	if err := s.Save(context.Background(), &Bundle{Version: "v"}); err == nil {
		t.Error("缺少空间/索引的模型包不应落盘")
	}
	if err := s.Save(context.Background(), nil); err == nil {
		t.Error("nil bundle 不应落盘")
	}
}
