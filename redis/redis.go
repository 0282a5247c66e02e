// Package redis holds per-stream leases so that only one bridge instance
// scans or sends for a stream at a time.
package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
)

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewPool(host string, port int) *redis.Pool {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	return &redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 240 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
	}
}

// deletes the key only while we still own it
var releaseScript = redis.NewScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease grants exclusive, expiring ownership of a stream to this process.
type Lease struct {
	pool  *redis.Pool
	owner string
	ttl   time.Duration
}

func NewLease(pool *redis.Pool, ttl time.Duration) *Lease {
	return &Lease{pool: pool, owner: uuid.NewString(), ttl: ttl}
}

func leaseKey(stream string) string {
	return fmt.Sprintf("ibetwstbridge:lease:%s", stream)
}

// Acquire reports whether this process now holds the lease of stream.
// Holding it already renews the expiry.
func (l *Lease) Acquire(stream string) (bool, error) {
	conn := l.pool.Get()
	defer conn.Close()

	key := leaseKey(stream)
	ms := l.ttl.Milliseconds()
	_, err := redis.String(conn.Do("SET", key, l.owner, "NX", "PX", ms))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.ErrNil) {
		return false, fmt.Errorf("redis SET %s: %w", key, err)
	}

	holder, err := redis.String(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	if holder != l.owner {
		return false, nil
	}
	if _, err := conn.Do("PEXPIRE", key, ms); err != nil {
		return false, fmt.Errorf("redis PEXPIRE %s: %w", key, err)
	}
	return true, nil
}

func (l *Lease) Release(stream string) error {
	conn := l.pool.Get()
	defer conn.Close()

	if _, err := releaseScript.Do(conn, leaseKey(stream), l.owner); err != nil {
		return fmt.Errorf("redis release %s: %w", stream, err)
	}
	return nil
}

func (l *Lease) Owner() string { return l.owner }
