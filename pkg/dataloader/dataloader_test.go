package dataloader

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder 记录批量函数的每次调用
type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) record(keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]string(nil), keys...)
	sort.Strings(cp)
	r.calls = append(r.calls, cp)
}

func (r *recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

// rowsFetch 模拟"按外键查询"：只为 rows 中存在的 key 返回结果
func rowsFetch(rec *recorder, rows map[string][]int) BatchFunc[string, []int] {
	return func(ctx context.Context, keys []string) (map[string]Result[[]int], error) {
		rec.record(keys)
		out := make(map[string]Result[[]int])
		for _, k := range keys {
			if v, ok := rows[k]; ok {
				out[k] = Result[[]int]{Value: v}
			}
		}
		return out, nil
	}
}

func manual() Config {
	return Config{Wait: -1}
}

func TestLoad_CoalescesAndDeduplicates(t *testing.T) {
	rec := &recorder{}
	l := New(rowsFetch(rec, map[string][]int{"k1": {1}, "k2": {2}}), manual())
	ctx := context.Background()

	t1 := l.LoadThunk(ctx, "k1")
	t2 := l.LoadThunk(ctx, "k2")
	t3 := l.LoadThunk(ctx, "k1")
	l.Flush()

	v1, err := t1()
	require.NoError(t, err)
	v2, err := t2()
	require.NoError(t, err)
	v3, err := t3()
	require.NoError(t, err)

	assert.Equal(t, []int{1}, v1)
	assert.Equal(t, []int{2}, v2)
	assert.Equal(t, []int{1}, v3)
	assert.Equal(t, [][]string{{"k1", "k2"}}, rec.Calls())
}

func TestLoad_ConcurrentCallersShareOneBatch(t *testing.T) {
	rec := &recorder{}
	rows := map[string][]int{"a": {1}, "b": {2}, "c": {3}}
	l := New(rowsFetch(rec, rows), Config{Wait: 100 * time.Millisecond})
	ctx := context.Background()

	keys := []string{"a", "b", "c", "a", "b", "c", "a"}
	var wg sync.WaitGroup
	results := make([][]int, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k string) {
			defer wg.Done()
			results[i], errs[i] = l.Load(ctx, k)
		}(i, k)
	}
	wg.Wait()

	for i, k := range keys {
		require.NoError(t, errs[i])
		assert.Equal(t, rows[k], results[i])
	}
	assert.Equal(t, [][]string{{"a", "b", "c"}}, rec.Calls())
	assert.Equal(t, int64(1), l.Stats().Batches)
}

func TestLoad_MaxBatchSplitsWindow(t *testing.T) {
	rec := &recorder{}
	l := New(rowsFetch(rec, map[string][]int{"a": {1}, "b": {2}, "c": {3}}), Config{MaxBatch: 2, Wait: -1})
	ctx := context.Background()

	ta := l.LoadThunk(ctx, "a")
	tb := l.LoadThunk(ctx, "b") // 达到上限，立即提交
	tc := l.LoadThunk(ctx, "c")
	l.Flush()

	for _, th := range []func() ([]int, error){ta, tb, tc} {
		_, err := th()
		require.NoError(t, err)
	}
	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, [][]string{{"a", "b"}, {"c"}}, calls)
}

func TestLoad_MemoizesSuccessfulValues(t *testing.T) {
	rec := &recorder{}
	l := New(rowsFetch(rec, map[string][]int{"k": {7}}), Config{Wait: time.Millisecond})
	ctx := context.Background()

	v, err := l.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, v)

	v, err = l.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, v)

	assert.Len(t, rec.Calls(), 1)
	stats := l.Stats()
	assert.Equal(t, int64(2), stats.Loads)
	assert.Equal(t, int64(1), stats.CacheHits)
}

func TestLoad_MissingKeyDefaultsToEmpty(t *testing.T) {
	rec := &recorder{}
	l := New(rowsFetch(rec, map[string][]int{"A": {1, 2}}), manual()).
		WithMissing(func(string) []int { return []int{} })
	ctx := context.Background()

	ta := l.LoadThunk(ctx, "A")
	tb := l.LoadThunk(ctx, "B")
	l.Flush()

	a, err := ta()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, a)

	b, err := tb()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Empty(t, b)

	// 缺失 key 的空值同样被缓存
	b, err = l.Load(ctx, "B")
	require.NoError(t, err)
	assert.Empty(t, b)
	assert.Len(t, rec.Calls(), 1)
}

func TestLoad_BatchFailureIsFateSharedAndNotCached(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	fail := true
	fetch := func(ctx context.Context, keys []string) (map[string]Result[int], error) {
		calls++
		if fail {
			return nil, boom
		}
		out := make(map[string]Result[int])
		for _, k := range keys {
			out[k] = Result[int]{Value: len(k)}
		}
		return out, nil
	}
	l := New(fetch, manual())
	ctx := context.Background()

	ta := l.LoadThunk(ctx, "A")
	tb := l.LoadThunk(ctx, "BB")
	l.Flush()

	_, errA := ta()
	_, errB := tb()
	require.Error(t, errA)
	assert.Same(t, boom, errA)
	assert.Same(t, boom, errB)
	assert.Equal(t, 1, calls)

	// 失败不缓存，重试会重新查询
	fail = false
	retry := l.LoadThunk(ctx, "A")
	l.Flush()
	v, err := retry()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, calls)
}

func TestLoad_PerKeyErrorOnlyAffectsThatKey(t *testing.T) {
	notFound := errors.New("not found")
	calls := 0
	fetch := func(ctx context.Context, keys []string) (map[string]Result[string], error) {
		calls++
		out := make(map[string]Result[string])
		for _, k := range keys {
			if k == "missing" {
				out[k] = Result[string]{Err: notFound}
				continue
			}
			out[k] = Result[string]{Value: "v-" + k}
		}
		return out, nil
	}
	l := New(fetch, manual())
	ctx := context.Background()

	t1 := l.LoadThunk(ctx, "ok")
	t2 := l.LoadThunk(ctx, "missing")
	t3 := l.LoadThunk(ctx, "missing")
	l.Flush()

	v, err := t1()
	require.NoError(t, err)
	assert.Equal(t, "v-ok", v)
	_, err = t2()
	assert.ErrorIs(t, err, notFound)
	_, err = t3()
	assert.ErrorIs(t, err, notFound)

	// 成功值已缓存，错误未缓存
	v, err = l.Load(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, "v-ok", v)
	assert.Equal(t, 1, calls)

	th := l.LoadThunk(ctx, "missing")
	l.Flush()
	_, err = th()
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, 2, calls)
}

func TestLoad_CancelledCallerDoesNotCancelBatch(t *testing.T) {
	rec := &recorder{}
	var fetchCtxErr error
	fetch := func(ctx context.Context, keys []string) (map[string]Result[[]int], error) {
		rec.record(keys)
		fetchCtxErr = ctx.Err()
		return map[string]Result[[]int]{"k": {Value: []int{1}}}, nil
	}
	l := New(fetch, manual())

	cancelled, cancel := context.WithCancel(context.Background())
	abandoned := l.LoadThunk(cancelled, "k")
	live := l.LoadThunk(context.Background(), "k")
	cancel()

	_, err := abandoned()
	assert.ErrorIs(t, err, context.Canceled)

	l.Flush()
	v, err := live()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, v)
	assert.NoError(t, fetchCtxErr)
	assert.Len(t, rec.Calls(), 1)
}

func TestLoadAll(t *testing.T) {
	rec := &recorder{}
	l := New(rowsFetch(rec, map[string][]int{"a": {1}, "b": {2}}), Config{Wait: time.Millisecond})

	values, errs := l.LoadAll(context.Background(), []string{"a", "b", "a", "z"})
	assert.Equal(t, [][]int{{1}, {2}, {1}, nil}, values)
	assert.Equal(t, []error{nil, nil, nil, nil}, errs)
	assert.Equal(t, [][]string{{"a", "b", "z"}}, rec.Calls())
}

func TestPrimeAndClear(t *testing.T) {
	rec := &recorder{}
	l := New(rowsFetch(rec, map[string][]int{"a": {1}}), Config{Wait: time.Millisecond})
	ctx := context.Background()

	assert.True(t, l.Prime("a", []int{42}))
	assert.False(t, l.Prime("a", []int{43}))

	v, err := l.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []int{42}, v)
	assert.Empty(t, rec.Calls())

	l.Clear("a")
	v, err = l.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, v)
	assert.Len(t, rec.Calls(), 1)
}

func TestLoadersAreIsolated(t *testing.T) {
	rec := &recorder{}
	fetch := rowsFetch(rec, map[string][]int{"k": {1}})
	ctx := context.Background()

	first := New(fetch, Config{Wait: time.Millisecond})
	second := New(fetch, Config{Wait: time.Millisecond})

	_, err := first.Load(ctx, "k")
	require.NoError(t, err)
	_, err = second.Load(ctx, "k")
	require.NoError(t, err)

	assert.Len(t, rec.Calls(), 2)
	assert.Equal(t, int64(0), second.Stats().CacheHits)
}

func TestLoad_PanicResolvesAllWaiters(t *testing.T) {
	fetch := func(ctx context.Context, keys []string) (map[string]Result[int], error) {
		panic("bad row")
	}
	l := New(fetch, manual())
	ctx := context.Background()

	t1 := l.LoadThunk(ctx, "a")
	t2 := l.LoadThunk(ctx, "b")
	l.Flush()

	_, err := t1()
	assert.ErrorIs(t, err, ErrBatchPanic)
	_, err = t2()
	assert.ErrorIs(t, err, ErrBatchPanic)
}

func TestFlush_EmptyWindowIsNoop(t *testing.T) {
	rec := &recorder{}
	l := New(rowsFetch(rec, nil), manual())
	l.Flush()
	assert.Empty(t, rec.Calls())
	assert.Equal(t, int64(0), l.Stats().Batches)
}
