package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/voiceflow/pkg/adapters/redis"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRecorder_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunRecorderContract(t, redis.NewFromClient(client))
}

func TestRedisRecorder_Prefix(t *testing.T) {
	mr, client := setup(t)
	rec := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	s := domain.NewState("room-1", "start")
	require.NoError(t, rec.Save(ctx, domain.NewSessionRecord("travel", s, time.Now())))

	assert.True(t, mr.Exists("test:room-1"))
	assert.True(t, mr.Exists("test:index"))
}

func TestRedisRecorder_TTL(t *testing.T) {
	mr, client := setup(t)
	rec := redis.NewFromClient(client, redis.WithTTL(time.Minute))
	ctx := context.Background()

	for _, id := range []string{"old", "new"} {
		s := domain.NewState(id, "start")
		require.NoError(t, rec.Save(ctx, domain.NewSessionRecord("travel", s, time.Now())))
	}

	mr.Del("voiceflow:record:old") // simulate expiry of one record

	ids, err := rec.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids)

	members, err := mr.ZMembers("voiceflow:record:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, members, "stale index entries are pruned")

	mr.FastForward(2 * time.Minute)
	_, err = rec.Load(ctx, "new")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "room-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)
	assert.True(t, mr.Exists("test:lock:room-1"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:room-1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := setup(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(waitCtx, "shared", 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_UnlockDoesNotStealForeignLock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "room", time.Second)
	require.NoError(t, err)

	// Lock expired and was taken by someone else.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:room", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:room")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
