package store

import (
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// The redis suites need a live server. FLOW_REDIS_ADDR takes a single address, or a comma separated list for a
// cluster.
func TestRedisStoreTestSuite(t *testing.T) {
	addr := os.Getenv("FLOW_REDIS_ADDR")
	if addr == "" {
		t.Skip("FLOW_REDIS_ADDR is not set")
	}

	testSuite := NewStoreTestSuite(func() StateStore[string] {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: strings.Split(addr, ","),
		})
		t.Cleanup(func() { _ = rdb.Close() })

		return NewRedisStore[string](rdb, WithKeyPrefix("flow-test:"+uuid.NewString()+":"))
	}, nil)
	suite.Run(t, testSuite)
}
