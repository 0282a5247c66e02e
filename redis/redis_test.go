package redis

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memConn answers the handful of commands a lease issues from a shared map.
type memConn struct {
	data map[string]string
	ttl  map[string]int64
	down bool
}

func (c *memConn) Close() error { return nil }
func (c *memConn) Err() error { return nil }
func (c *memConn) Send(cmd string, args ...interface{}) error { return nil }
func (c *memConn) Flush() error { return nil }
func (c *memConn) Receive() (interface{}, error) { return nil, nil }

func (c *memConn) Do(cmd string, args ...interface{}) (interface{}, error) {
	if cmd == "" {
		return nil, nil
	}
	if c.down {
		return nil, errors.New("connection refused")
	}
	str := func(i int) string { return fmt.Sprint(args[i]) }
	switch cmd {
	case "SET":
		key := str(0)
		if _, ok := c.data[key]; ok {
			return nil, nil
		}
		c.data[key] = str(1)
		c.ttl[key] = args[4].(int64)
		return "OK", nil
	case "GET":
		v, ok := c.data[str(0)]
		if !ok {
			return nil, nil
		}
		return []byte(v), nil
	case "PEXPIRE":
		c.ttl[str(0)] = args[1].(int64)
		return int64(1), nil
	case "EVALSHA":
		key, owner := str(2), str(3)
		if c.data[key] == owner {
			delete(c.data, key)
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unexpected command %s", cmd)
}

func newTestPool(conn *memConn) *redis.Pool {
	return &redis.Pool{Dial: func() (redis.Conn, error) { return conn, nil }}
}

func TestLeaseExclusive(t *testing.T) {
	conn := &memConn{data: map[string]string{}, ttl: map[string]int64{}}
	pool := newTestPool(conn)
	a := NewLease(pool, time.Minute)
	b := NewLease(pool, time.Minute)
	require.NotEqual(t, a.Owner(), b.Owner())

	ok, err := a.Acquire("ethereum")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(60000), conn.ttl["ibetwstbridge:lease:ethereum"])

	ok, err = b.Acquire("ethereum")
	require.NoError(t, err)
	assert.False(t, ok)

	// other streams are independent
	ok, err = b.Acquire("trade")
	require.NoError(t, err)
	assert.True(t, ok)

	// renewal by the holder
	ok, err = a.Acquire("ethereum")
	require.NoError(t, err)
	assert.True(t, ok)

	// a release by a non-holder does nothing
	require.NoError(t, b.Release("ethereum"))
	ok, _ = b.Acquire("ethereum")
	assert.False(t, ok)

	require.NoError(t, a.Release("ethereum"))
	ok, err = b.Acquire("ethereum")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseRedisDown(t *testing.T) {
	conn := &memConn{data: map[string]string{}, ttl: map[string]int64{}, down: true}
	l := NewLease(newTestPool(conn), time.Minute)
	ok, err := l.Acquire("ibetfin")
	assert.Error(t, err)
	assert.False(t, ok)
}
