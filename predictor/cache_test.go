package predictor

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"symptomcheck/artifacts"
	"symptomcheck/artifacts/artifactstest"
)

type recordingCache struct {
	keys []string
}

func (c *recordingCache) Name() string { return "recording" }

func (c *recordingCache) Get(_ context.Context, key string) (*Result, bool, error) {
	c.keys = append(c.keys, key)
	return nil, false, nil
}

func (c *recordingCache) Add(context.Context, string, *Result) error { return nil }

func loadBundle(t *testing.T) *artifacts.Bundle {
	t.Helper()
	bundle, err := artifacts.Load(artifactstest.Write(t, t.TempDir()))
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	return bundle
}

func TestCacheKeyStableAcrossLoads(t *testing.T) {
	cache := &recordingCache{}
	for i := 0; i < 2; i++ {
		svc := New(loadBundle(t), WithCache(cache))
		if _, err := svc.Predict(context.Background(), "itching,skin_rash"); err != nil {
			t.Fatal(err)
		}
	}
	if len(cache.keys) != 2 || cache.keys[0] != cache.keys[1] {
		t.Fatalf("expected one key for both loads, got %q", cache.keys)
	}
}

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:", ttl)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCacheGetAdd(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "v1:0,1"); err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}

	want := &Result{RandomForest: "Allergy", NaiveBayes: "Allergy", SVM: "Common Cold", Final: "Allergy"}
	if err := c.Add(ctx, "v1:0,1", want); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, ok, err := c.Get(ctx, "v1:0,1")
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if *got != *want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if ttl := mr.TTL("test:v1:0,1"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "v1:0,1"); ok {
		t.Fatal("entry outlived its ttl")
	}
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	c, mr := newRedisCache(t, 0)
	mr.Set("test:bad", "not json")

	if _, _, err := c.Get(context.Background(), "bad"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRedisCacheSharedBetweenServices(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	first, err := New(loadBundle(t), WithCache(c)).Predict(ctx, "high_fever,cough")
	if err != nil {
		t.Fatal(err)
	}
	rf := &fakeModel{name: "rf"}
	shared := loadBundle(t)
	shared.RandomForest = rf
	second, err := New(shared, WithCache(c)).Predict(ctx, "cough,high_fever")
	if err != nil {
		t.Fatal(err)
	}
	if *first != *second {
		t.Fatalf("second replica got %+v, want cached %+v", second, first)
	}
	if n := rf.calls.Load(); n != 0 {
		t.Fatalf("expected the cached result, classifier ran %d times", n)
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Fatalf("expected one shared key, got %v", keys)
	}
}
