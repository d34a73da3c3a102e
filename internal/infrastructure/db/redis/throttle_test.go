package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewLoginThrottle_Defaults(t *testing.T) {
	th := NewLoginThrottle(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 0, 0)

	if th.maxAttempts != defaultMaxAttempts {
		t.Errorf("maxAttempts = %d", th.maxAttempts)
	}
	if th.lockout != defaultLockout {
		t.Errorf("lockout = %s", th.lockout)
	}
}

func TestNewLoginThrottle_Custom(t *testing.T) {
	th := NewLoginThrottle(nil, 3, time.Minute)

	if th.maxAttempts != 3 || th.lockout != time.Minute {
		t.Errorf("unexpected config: %d %s", th.maxAttempts, th.lockout)
	}
}

func TestLoginThrottle_Key(t *testing.T) {
	th := NewLoginThrottle(nil, 3, time.Minute)

	if got := th.key("portal:alice@school.test"); got != "login_failures:portal:alice@school.test" {
		t.Errorf("key = %q", got)
	}
}

// fakeCounter implements the slice of redis.Cmdable the throttle uses.
// Anything else panics through the nil embedded interface.
type fakeCounter struct {
	redis.Cmdable

	counts  map[string]int64
	expires map[string][]time.Duration
	getErr  error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string][]time.Duration{}}
}

func (f *fakeCounter) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	n, ok := f.counts[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(n, 10), nil)
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = append(f.expires[key], ttl)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.counts[k]; ok {
			delete(f.counts, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestLoginThrottle_LocksOutAtMaxAttempts(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCounter()
	th := NewLoginThrottle(fake, 3, time.Minute)
	const id = "licensing:maria"

	for i := 1; i <= 2; i++ {
		if err := th.Fail(ctx, id); err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
		ok, err := th.Allow(ctx, id)
		if err != nil || !ok {
			t.Fatalf("after %d failures: allowed=%v err=%v", i, ok, err)
		}
	}

	if err := th.Fail(ctx, id); err != nil {
		t.Fatalf("fail 3: %v", err)
	}
	if ok, _ := th.Allow(ctx, id); ok {
		t.Fatal("expected lockout after the third failure")
	}

	if ok, _ := th.Allow(ctx, "licensing:other"); !ok {
		t.Fatal("other identifiers must not be locked out")
	}
}

func TestLoginThrottle_ExpireOnlyOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCounter()
	th := NewLoginThrottle(fake, 5, 2*time.Minute)

	for range 4 {
		_ = th.Fail(ctx, "portal:a@school.test")
	}

	got := fake.expires["login_failures:portal:a@school.test"]
	if len(got) != 1 || got[0] != 2*time.Minute {
		t.Fatalf("expected a single 2m expire, got %v", got)
	}
}

func TestLoginThrottle_ResetUnlocks(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCounter()
	th := NewLoginThrottle(fake, 1, time.Minute)

	_ = th.Fail(ctx, "portal:a@school.test")
	if ok, _ := th.Allow(ctx, "portal:a@school.test"); ok {
		t.Fatal("expected lockout")
	}

	if err := th.Reset(ctx, "portal:a@school.test"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if ok, err := th.Allow(ctx, "portal:a@school.test"); err != nil || !ok {
		t.Fatalf("expected unlock after reset, allowed=%v err=%v", ok, err)
	}
}

func TestLoginThrottle_AllowSurfacesRedisErrors(t *testing.T) {
	fake := newFakeCounter()
	fake.getErr = errors.New("connection refused")
	th := NewLoginThrottle(fake, 3, time.Minute)

	ok, err := th.Allow(context.Background(), "portal:a@school.test")
	if err == nil || ok {
		t.Fatalf("expected error and no permission, got allowed=%v err=%v", ok, err)
	}
}
