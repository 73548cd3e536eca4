// Package devlock serializes reconciliation jobs per device with a Redis
// lock, so two operators never edit the same device at once.
package devlock

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/newtron-network/relayctl/pkg/util"
)

// KeyPrefix is the Redis key namespace for device locks: RELAYCTL_LOCK|<device>.
const KeyPrefix = "RELAYCTL_LOCK"

// DefaultTTL bounds how long a crashed job can hold a device.
const DefaultTTL = 10 * time.Minute

// acquireLockScript returns 1 on success, 0 if already locked by another holder.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript returns 1 on success, 0 on holder mismatch, -1 if the
// key does not exist.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// Locker hands out device locks from one Redis database.
type Locker struct {
	client *redis.Client
	TTL    time.Duration
}

// NewLocker creates a locker on the given Redis address and database.
func NewLocker(addr string, db int) *Locker {
	return &Locker{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		TTL: DefaultTTL,
	}
}

// Close closes the connection
func (l *Locker) Close() error {
	return l.client.Close()
}

// Lock is a held device lock.
type Lock struct {
	Device   string
	Holder   string
	Acquired time.Time

	locker *Locker
}

// LockedError is returned when another job holds the device.
type LockedError struct {
	Device   string
	Holder   string
	Acquired time.Time
}

func (e *LockedError) Error() string {
	if e.Holder == "" {
		return fmt.Sprintf("device %s is locked", e.Device)
	}
	return fmt.Sprintf("device %s is locked by %s since %s", e.Device, e.Holder, e.Acquired.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error {
	return util.ErrDeviceLocked
}

func lockKey(device string) string {
	return fmt.Sprintf("%s|%s", KeyPrefix, device)
}

// NewHolder returns a holder identity of the form user@host/<uuid>, unique
// per job.
func NewHolder() string {
	name := "unknown"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return fmt.Sprintf("%s@%s/%s", name, host, uuid.New().String())
}

func ttlSeconds(ttl time.Duration) int {
	s := int(ttl / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// Acquire locks device for holder. It returns a *LockedError, which matches
// util.ErrDeviceLocked, when another holder has it.
func (l *Locker) Acquire(ctx context.Context, device, holder string) (*Lock, error) {
	now := time.Now().UTC()
	result, err := acquireLockScript.Run(ctx, l.client, []string{lockKey(device)},
		holder, now.Format(time.RFC3339), fmt.Sprintf("%d", ttlSeconds(l.TTL))).Int()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock for %s: %w", device, err)
	}
	if result == 0 {
		h, at, _ := l.Holder(ctx, device)
		return nil, &LockedError{Device: device, Holder: h, Acquired: at}
	}
	util.WithDevice(device).Debugf("lock acquired by %s", holder)
	return &Lock{Device: device, Holder: holder, Acquired: now, locker: l}, nil
}

// Release releases the lock. A lock that already expired is not an error;
// one taken over by another holder is.
func (k *Lock) Release(ctx context.Context) error {
	result, err := releaseLockScript.Run(ctx, k.locker.client, []string{lockKey(k.Device)}, k.Holder).Int()
	if err != nil {
		return fmt.Errorf("releasing lock for %s: %w", k.Device, err)
	}
	if result == 0 {
		return fmt.Errorf("lock holder mismatch for %s", k.Device)
	}
	util.WithDevice(k.Device).Debug("lock released")
	return nil
}

// Holder returns the current lock holder and acquisition time for the device.
// Returns ("", zero, nil) if no lock is held.
func (l *Locker) Holder(ctx context.Context, device string) (string, time.Time, error) {
	vals, err := l.client.HGetAll(ctx, lockKey(device)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("getting lock holder for %s: %w", device, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}

	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}
