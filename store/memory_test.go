package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rushteam/item2rec/core"
)

func TestMemoryStore_ZSetOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	key := "test:zset"
	for member, score := range map[string]float64{
		"a": 1.0, "b": 3.0, "c": 2.0,
	} {
		if err := s.ZAdd(ctx, key, score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	desc, err := s.ZRange(ctx, key, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(desc, []string{"b", "c", "a"}) {
		t.Errorf("ZRange desc = %v, want [b c a]", desc)
	}

	asc, err := s.ZRangeAsc(ctx, key, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(asc, []string{"a", "c", "b"}) {
		t.Errorf("ZRangeAsc = %v, want [a c b]", asc)
	}

	// 截取区间
	top, err := s.ZRange(ctx, key, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(top, []string{"b", "c"}) {
		t.Errorf("ZRange(0,1) = %v, want [b c]", top)
	}

	score, err := s.ZScore(ctx, key, "c")
	if err != nil || score != 2.0 {
		t.Errorf("ZScore(c) = (%v, %v), want (2.0, nil)", score, err)
	}
}

func TestMemoryStore_ZSetTieBreak(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	// 同分 member 按字典序，枚举结果稳定
	for _, m := range []string{"z", "a", "m"} {
		if err := s.ZAdd(ctx, "ties", 1.0, m); err != nil {
			t.Fatal(err)
		}
	}
	asc, err := s.ZRangeAsc(ctx, "ties", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(asc, []string{"a", "m", "z"}) {
		t.Errorf("同分 member 应按字典序: %v", asc)
	}

	// 降序是升序的整体反转，同分 member 取字典序较大者在前，
	// 与 Redis ZREVRANGE 的行为一致
	desc, err := s.ZRange(ctx, "ties", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(desc, []string{"z", "m", "a"}) {
		t.Errorf("降序同分 member 应按字典序反转: %v", desc)
	}
}

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrStoreNotFound) {
		t.Errorf("缺失 key 应返回 ErrStoreNotFound，实际: %v", err)
	}

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get(k) = (%s, %v)", got, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, core.ErrStoreNotFound) {
		t.Errorf("删除后应返回 ErrStoreNotFound，实际: %v", err)
	}
}

func TestMemoryStore_BatchOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	items := map[string][]byte{
		"k1": []byte("v1"),
		"k2": []byte("v2"),
	}
	if err := s.BatchSet(ctx, items); err != nil {
		t.Fatal(err)
	}

	got, err := s.BatchGet(ctx, []string{"k1", "k2", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || string(got["k1"]) != "v1" || string(got["k2"]) != "v2" {
		t.Errorf("BatchGet = %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Error("缺失 key 不应出现在 BatchGet 结果中")
	}
}
