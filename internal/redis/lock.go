package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/scheduling/internal/schedule"
)

// scheduleLocker guards the check-then-insert critical section with one Redis
// key per (doctor, date). Acquisition is non-blocking: a contended lock
// surfaces as schedule.ErrScheduleBusy and the caller retries with a fresh
// slot list.
type scheduleLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewScheduleLocker creates a schedule.Locker backed by Redis SetNX with a
// token-checked Lua release.
func NewScheduleLocker(client *redis.Client, ttl time.Duration) schedule.Locker {
	return &scheduleLocker{
		client: client,
		ttl:    ttl,
	}
}

func lockKey(doctorID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("lock:schedule:%s:%s", doctorID.String(), schedule.DayOf(day).Format("2006-01-02"))
}

func (l *scheduleLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := lockKey(doctorID, day)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire schedule lock: %w", err)
	}
	if !ok {
		return schedule.ErrScheduleBusy
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *scheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
