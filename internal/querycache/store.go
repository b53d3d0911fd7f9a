// Package querycache 是读操作的缓存层：按 (operation, 变量) 缓存响应，
// 并发重复读合并成一次请求，mutation 成功后由调用方显式失效。
//
// 约束：
// - mutation 不经过本包
// - 失效之前发起、失效之后才完成的请求，结果不会被失效之后的读使用
// - 读失败最多重试 ReadRetry 次；客户端校验失败与 ctx 结束不重试
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/moviegraph/internal/domain"
	"github.com/John-Robertt/moviegraph/internal/infra/metrics"
)

// Fetcher 执行一次真实读取（通常是一次 transport 调用）。
type Fetcher func(ctx context.Context) (json.RawMessage, error)

type Options struct {
	// StaleTime 内的条目视为新鲜；<=0 表示一直新鲜直到被失效。
	StaleTime time.Duration
	// GCTime 是条目在缓存中的最长保留时间（ristretto TTL）；<=0 表示不过期。
	GCTime     time.Duration
	MaxEntries int
	ReadRetry  int
	RetryDelay time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Now 仅供测试注入时钟。
	Now func() time.Time
}

const (
	DefaultMaxEntries = 256
	DefaultRetryDelay = 500 * time.Millisecond
)

type entry struct {
	data      json.RawMessage
	fetchedAt time.Time
	opGen     uint64
	keyGen    uint64
}

type Store struct {
	opts  Options
	log   *zap.Logger
	now   func() time.Time
	cache *ristretto.Cache[string, *entry]
	group singleflight.Group

	mu     sync.Mutex
	opGen  map[string]uint64
	keyGen map[string]uint64
}

func New(opts Options) (*Store, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.ReadRetry < 0 {
		opts.ReadRetry = 0
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, *entry]{
		NumCounters:        int64(opts.MaxEntries) * 10,
		MaxCost:            int64(opts.MaxEntries),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化缓存失败：%w", err)
	}
	return &Store{
		opts:   opts,
		log:    log,
		now:    now,
		cache:  c,
		opGen:  map[string]uint64{},
		keyGen: map[string]uint64{},
	}, nil
}

func (s *Store) Close() {
	s.cache.Close()
}

func (s *Store) gens(op, ks string) (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opGen[op], s.keyGen[ks]
}

func (s *Store) fresh(e *entry, opGen, keyGen uint64) bool {
	if e.opGen != opGen || e.keyGen != keyGen {
		return false
	}
	if s.opts.StaleTime <= 0 {
		return true
	}
	return s.now().Sub(e.fetchedAt) < s.opts.StaleTime
}

// Get 返回 key 对应的数据：新鲜条目直接返回，否则经 singleflight 调用 fetch 并写回缓存。
//
// 合并后的那一次 fetch 使用发起者的 ctx。
func (s *Store) Get(ctx context.Context, key Key, fetch Fetcher) (json.RawMessage, error) {
	ks := key.String()
	opGen, keyGen := s.gens(key.Op, ks)

	if e, ok := s.cache.Get(ks); ok && s.fresh(e, opGen, keyGen) {
		s.log.Debug("cache hit", zap.String("key", ks))
		s.opts.Metrics.CacheEvent(key.Op, metrics.CacheHit)
		return e.data, nil
	}

	ran := false
	sfKey := fmt.Sprintf("%s#%d.%d", ks, opGen, keyGen)
	v, err, _ := s.group.Do(sfKey, func() (any, error) {
		ran = true
		s.log.Debug("cache miss", zap.String("key", ks))
		s.opts.Metrics.CacheEvent(key.Op, metrics.CacheMiss)

		data, err := s.fetchWithRetry(ctx, key.Op, fetch)
		if err != nil {
			return nil, err
		}
		s.store(key.Op, ks, &entry{data: data, fetchedAt: s.now(), opGen: opGen, keyGen: keyGen})
		return data, nil
	})
	if !ran {
		s.log.Debug("cache coalesced", zap.String("key", ks))
		s.opts.Metrics.CacheEvent(key.Op, metrics.CacheCoalesced)
	}
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (s *Store) fetchWithRetry(ctx context.Context, op string, fetch Fetcher) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opts.ReadRetry; attempt++ {
		if attempt > 0 {
			s.log.Warn("读取失败，重试",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			s.opts.Metrics.CacheEvent(op, metrics.CacheRetry)
			if err := sleepCtx(ctx, s.opts.RetryDelay); err != nil {
				return nil, lastErr
			}
		}
		data, err := fetch(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil || domain.IsValidation(err) {
			break
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// store 只在代数仍然有效时写入：失效之后才完成的旧请求不会覆盖新结果。
func (s *Store) store(op, ks string, e *entry) {
	opGen, keyGen := s.gens(op, ks)
	if e.opGen != opGen || e.keyGen != keyGen {
		s.log.Debug("丢弃失效前发起的结果", zap.String("key", ks))
		return
	}
	if s.opts.GCTime > 0 {
		s.cache.SetWithTTL(ks, e, 1, s.opts.GCTime)
	} else {
		s.cache.Set(ks, e, 1)
	}
	s.cache.Wait()
}

// Peek 不发请求地查看 key 的缓存：ok 表示有条目，fresh 表示条目可直接使用。
func (s *Store) Peek(key Key) (data json.RawMessage, fresh, ok bool) {
	ks := key.String()
	opGen, keyGen := s.gens(key.Op, ks)
	e, found := s.cache.Get(ks)
	if !found {
		return nil, false, false
	}
	return e.data, s.fresh(e, opGen, keyGen), true
}

// Invalidate 把指定 key 标记为过期。
func (s *Store) Invalidate(keys ...Key) {
	for _, k := range keys {
		ks := k.String()
		s.mu.Lock()
		s.keyGen[ks]++
		s.mu.Unlock()
		s.cache.Del(ks)
		s.log.Debug("cache invalidate", zap.String("key", ks))
		s.opts.Metrics.CacheEvent(k.Op, metrics.CacheInvalidate)
	}
}

// InvalidateOp 把 ops 下的所有 key 标记为过期（例如所有 SearchAll 的搜索词）。
func (s *Store) InvalidateOp(ops ...string) {
	s.mu.Lock()
	for _, op := range ops {
		s.opGen[op]++
	}
	s.mu.Unlock()
	for _, op := range ops {
		s.log.Debug("cache invalidate", zap.String("operation", op))
		s.opts.Metrics.CacheEvent(op, metrics.CacheInvalidate)
	}
}
