package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

// unreachableClient returns a client whose server does not exist; every
// command fails fast.
func unreachableClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestLotMapCache_KeyUsesPrefix(t *testing.T) {
	c := NewLotMapCacheWithClient(unreachableClient(), time.Hour, "reoscore", logging.NewNopLogger())
	assert.Equal(t, "reoscore:lotmap", c.key())
}

func TestLotMapCache_BestEffortOnFailure(t *testing.T) {
	c := NewLotMapCacheWithClient(unreachableClient(), time.Hour, "reoscore", logging.NewNopLogger())
	ctx := context.Background()

	// A broken cache is a miss, never an error.
	lots, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, lots)

	// Writes and invalidations swallow failures.
	c.Set(ctx, map[string]reference.LotEntry{"9459": {Product: "MASSA PRETA 100"}})
	c.Invalidate(ctx)

	assert.NoError(t, c.Close())
}
