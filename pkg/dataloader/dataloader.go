// Package dataloader 请求级批量加载器
//
// Loader 把同一时间窗口内并发到达的 Load(key) 合并为一次批量查询（BatchFunc），
// 并在自身生命周期内缓存成功结果。Loader 必须按请求创建、随请求丢弃，不跨请求共享。
//
// 批量窗口在以下任一条件满足时提交：
//   - 窗口内不同 key 的数量达到 MaxBatch
//   - 第一个 key 入窗后经过 Wait（去抖窗口）
//   - 调用方显式调用 Flush()
//
// 结果分发规则：
//   - key 有值：写入缓存，所有等待该 key 的调用方得到同一个值
//   - key 有错误，或整批失败：所有等待者得到同一个错误，错误不缓存（再次 Load 会重新查询）
//   - key 不在返回结果中：视为空值成功（见 WithMissing），并写入缓存
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxBatch 单批最大 key 数
	DefaultMaxBatch = 100
	// DefaultWait 默认去抖窗口
	DefaultWait = 2 * time.Millisecond
)

// ErrBatchPanic 批量函数发生 panic
var ErrBatchPanic = errors.New("dataloader: batch function panicked")

// Result 单个 key 的批量查询结果
type Result[V any] struct {
	Value V
	Err   error
}

// BatchFunc 批量查询函数
//
// keys 中每个 key 只出现一次。返回的 error 非 nil 表示整批失败，
// 该错误会分发给本批所有 key 的等待者。
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]Result[V], error)

// Config 加载器配置
type Config struct {
	// MaxBatch 单批最大 key 数，<=0 使用 DefaultMaxBatch
	MaxBatch int `yaml:"max_batch"`
	// Wait 去抖窗口，0 使用 DefaultWait，<0 表示只按 MaxBatch 和 Flush() 提交
	Wait time.Duration `yaml:"wait"`
}

func (c Config) withDefaults() Config {
	if c.MaxBatch <= 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.Wait == 0 {
		c.Wait = DefaultWait
	}
	return c
}

// Stats 加载器统计
type Stats struct {
	Loads     int64 // Load 调用次数
	CacheHits int64 // 命中缓存次数
	Batches   int64 // 批量函数调用次数
}

// Loader 合并、去重、缓存的批量加载器
type Loader[K comparable, V any] struct {
	fetch    BatchFunc[K, V]
	maxBatch int
	wait     time.Duration
	missing  func(K) V

	mu    sync.Mutex
	cache map[K]V
	batch *batch[K, V] // 当前正在收集 key 的窗口

	loads   atomic.Int64
	hits    atomic.Int64
	batches atomic.Int64
}

type batch[K comparable, V any] struct {
	ctx     context.Context
	keys    []K
	pending map[K]struct{}
	timer   *time.Timer
	closing bool
	done    chan struct{}

	// done 关闭后只读
	results map[K]Result[V]
	err     error
}

// New 创建加载器
func New[K comparable, V any](fetch BatchFunc[K, V], cfg Config) *Loader[K, V] {
	cfg = cfg.withDefaults()
	return &Loader[K, V]{
		fetch:    fetch,
		maxBatch: cfg.MaxBatch,
		wait:     cfg.Wait,
		cache:    make(map[K]V),
	}
}

// WithMissing 设置批量结果缺失 key 时的默认值（默认为 V 的零值）
func (l *Loader[K, V]) WithMissing(fn func(K) V) *Loader[K, V] {
	l.missing = fn
	return l
}

// Load 加载单个 key，阻塞直到所在批次完成或 ctx 取消
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.LoadThunk(ctx, key)()
}

// LoadThunk 立即将 key 加入窗口，返回的函数在调用时阻塞等待结果
//
// 适用于一个 goroutine 先发起多个 key、再统一等待的场景（可配合 Flush）。
// ctx 取消只影响本调用方，不会取消进行中的批量查询。
func (l *Loader[K, V]) LoadThunk(ctx context.Context, key K) func() (V, error) {
	l.loads.Add(1)

	l.mu.Lock()
	if v, ok := l.cache[key]; ok {
		l.mu.Unlock()
		l.hits.Add(1)
		return func() (V, error) { return v, nil }
	}
	b := l.enroll(ctx, key)
	l.mu.Unlock()

	return func() (V, error) {
		select {
		case <-b.done:
			return b.resolve(key)
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
}

// LoadAll 加载多个 key，返回值与错误按 keys 顺序对齐
func (l *Loader[K, V]) LoadAll(ctx context.Context, keys []K) ([]V, []error) {
	thunks := make([]func() (V, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(ctx, key)
	}

	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, thunk := range thunks {
		values[i], errs[i] = thunk()
	}
	return values, errs
}

// Prime 预置缓存；key 已存在时不修改并返回 false
func (l *Loader[K, V]) Prime(key K, value V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[key]; ok {
		return false
	}
	l.cache[key] = value
	return true
}

// Clear 删除缓存中的 key
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

// Flush 立即提交当前窗口并等待批量查询完成；窗口为空时直接返回
func (l *Loader[K, V]) Flush() {
	l.mu.Lock()
	b := l.batch
	ok := b != nil && l.detach(b)
	l.mu.Unlock()
	if ok {
		l.dispatch(b)
	}
}

// Stats 返回统计快照
func (l *Loader[K, V]) Stats() Stats {
	return Stats{
		Loads:     l.loads.Load(),
		CacheHits: l.hits.Load(),
		Batches:   l.batches.Load(),
	}
}

// enroll 将 key 加入当前窗口，调用方需持有 l.mu
func (l *Loader[K, V]) enroll(ctx context.Context, key K) *batch[K, V] {
	if l.batch == nil {
		l.batch = &batch[K, V]{
			ctx:     context.WithoutCancel(ctx),
			pending: make(map[K]struct{}),
			done:    make(chan struct{}),
		}
	}
	b := l.batch

	// 窗口内已有的 key 不重复加入，但调用方仍等待同一批次
	if _, ok := b.pending[key]; !ok {
		b.pending[key] = struct{}{}
		b.keys = append(b.keys, key)
	}

	switch {
	case len(b.keys) >= l.maxBatch:
		l.detach(b)
		go l.dispatch(b)
	case b.timer == nil && l.wait > 0:
		b.timer = time.AfterFunc(l.wait, func() { l.flush(b) })
	}
	return b
}

// detach 将批次从窗口摘下，调用方需持有 l.mu；批次已提交时返回 false
func (l *Loader[K, V]) detach(b *batch[K, V]) bool {
	if b.closing {
		return false
	}
	b.closing = true
	if b.timer != nil {
		b.timer.Stop()
	}
	if l.batch == b {
		l.batch = nil
	}
	return true
}

func (l *Loader[K, V]) flush(b *batch[K, V]) {
	l.mu.Lock()
	ok := l.detach(b)
	l.mu.Unlock()
	if ok {
		l.dispatch(b)
	}
}

// dispatch 调用批量函数并分发结果
func (l *Loader[K, V]) dispatch(b *batch[K, V]) {
	l.batches.Add(1)
	results, err := l.call(b)

	resolved := make(map[K]Result[V], len(b.keys))
	if err == nil {
		l.mu.Lock()
		for _, key := range b.keys {
			r, ok := results[key]
			if !ok {
				r = Result[V]{Value: l.missingValue(key)}
			}
			if r.Err == nil {
				l.cache[key] = r.Value
			}
			resolved[key] = r
		}
		l.mu.Unlock()
	}

	b.results = resolved
	b.err = err
	close(b.done)
}

func (l *Loader[K, V]) call(b *batch[K, V]) (results map[K]Result[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("%w: %v", ErrBatchPanic, r)
		}
	}()
	return l.fetch(b.ctx, b.keys)
}

func (l *Loader[K, V]) missingValue(key K) V {
	if l.missing != nil {
		return l.missing(key)
	}
	var zero V
	return zero
}

func (b *batch[K, V]) resolve(key K) (V, error) {
	if b.err != nil {
		var zero V
		return zero, b.err
	}
	r := b.results[key]
	return r.Value, r.Err
}
