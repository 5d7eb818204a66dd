package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/course-processor/pkg/logger"
)

// fakeWindowScripter mimics the sliding-window script against in-memory
// sorted sets of millisecond timestamps.
type fakeWindowScripter struct {
	sets map[string][]int64
	err  error
}

func newFakeWindowScripter() *fakeWindowScripter {
	return &fakeWindowScripter{sets: make(map[string][]int64)}
}

func (f *fakeWindowScripter) run(ctx context.Context, keys []string, args []interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}

	key := keys[0]
	now := args[0].(int64)
	window := args[1].(int64)
	limit := int64(args[2].(int))

	var kept []int64
	for _, ts := range f.sets[key] {
		if ts > now-window {
			kept = append(kept, ts)
		}
	}
	f.sets[key] = kept

	count := int64(len(kept))
	if count >= limit {
		cmd.SetVal([]interface{}{int64(0), count})
		return cmd
	}
	f.sets[key] = append(f.sets[key], now)
	cmd.SetVal([]interface{}{int64(1), count + 1})
	return cmd
}

func (f *fakeWindowScripter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args)
}

func (f *fakeWindowScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args)
}

func (f *fakeWindowScripter) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args)
}

func (f *fakeWindowScripter) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args)
}

func (f *fakeWindowScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	cmd := redis.NewBoolSliceCmd(ctx)
	cmd.SetVal([]bool{true})
	return cmd
}

func (f *fakeWindowScripter) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("sha")
	return cmd
}

func TestAllow_UnderLimit(t *testing.T) {
	rdb := newFakeWindowScripter()
	w := NewSlidingWindow(rdb, time.Minute, logger.NewTestLogger())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := w.Allow(ctx, "user-1", 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(i), res.Count)
	}

	res, err := w.Allow(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestAllow_OldRequestsSlideOut(t *testing.T) {
	rdb := newFakeWindowScripter()
	w := NewSlidingWindow(rdb, time.Minute, logger.NewTestLogger())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }

	res, err := w.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	w.now = func() time.Time { return base.Add(30 * time.Second) }
	res, err = w.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// 61s after the first request it has left the window.
	w.now = func() time.Time { return base.Add(61 * time.Second) }
	res, err = w.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestAllow_IdentitiesAreIndependent(t *testing.T) {
	rdb := newFakeWindowScripter()
	w := NewSlidingWindow(rdb, time.Minute, logger.NewTestLogger())
	ctx := context.Background()

	res, err := w.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = w.Allow(ctx, "ip:192.0.2.1", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestAllow_RejectionIsNotRecorded(t *testing.T) {
	rdb := newFakeWindowScripter()
	w := NewSlidingWindow(rdb, time.Minute, logger.NewTestLogger())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }

	res, err := w.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	// Hammering while limited must not extend the lockout.
	for i := 1; i <= 5; i++ {
		w.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		res, err = w.Allow(ctx, "user-1", 1)
		require.NoError(t, err)
		require.False(t, res.Allowed)
	}

	w.now = func() time.Time { return base.Add(61 * time.Second) }
	res, err = w.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestAllow_SurfacesRedisError(t *testing.T) {
	rdb := newFakeWindowScripter()
	rdb.err = errors.New("connection refused")
	w := NewSlidingWindow(rdb, time.Minute, logger.NewTestLogger())

	_, err := w.Allow(context.Background(), "user-1", 10)
	assert.Error(t, err)
}
