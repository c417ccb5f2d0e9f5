package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisLedgerOpts struct {
	KeyPrefix string        // e.g. "dedup:evt:"
	Retention time.Duration // processed-marker TTL; must cover the carrier redelivery window
	ClaimTTL  time.Duration // in-flight claim TTL; bounds a crashed worker's hold
}

// RedisLedger keeps the processed set and in-flight claims in Redis so
// multiple gateway processes share one ledger.
type RedisLedger struct {
	rdb       *redis.Client
	keyPrefix string
	retention time.Duration
	claimTTL  time.Duration
}

var _ Ledger = (*RedisLedger)(nil)

func NewRedisLedger(rdb *redis.Client, opts RedisLedgerOpts) *RedisLedger {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "dedup:evt:"
	}
	if opts.Retention <= 0 {
		opts.Retention = 72 * time.Hour
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = 2 * time.Minute
	}
	return &RedisLedger{
		rdb:       rdb,
		keyPrefix: opts.KeyPrefix,
		retention: opts.Retention,
		claimTTL:  opts.ClaimTTL,
	}
}

func (l *RedisLedger) doneKey(accountID, eventID string) string {
	return l.keyPrefix + "done:" + key(accountID, eventID)
}

func (l *RedisLedger) claimKey(accountID, eventID string) string {
	return l.keyPrefix + "claim:" + key(accountID, eventID)
}

// claimScript claims atomically: refuse when the processed marker
// exists, otherwise SET NX the claim key.
var claimScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
if redis.call("SET", KEYS[2], "1", "NX", "PX", ARGV[1]) then
  return 1
end
return 0
`)

func (l *RedisLedger) Claim(ctx context.Context, accountID, eventID string) (bool, error) {
	res, err := claimScript.Run(ctx, l.rdb,
		[]string{l.doneKey(accountID, eventID), l.claimKey(accountID, eventID)},
		l.claimTTL.Milliseconds(),
	).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (l *RedisLedger) MarkProcessed(ctx context.Context, accountID, eventID string) error {
	pipe := l.rdb.Pipeline()
	pipe.Set(ctx, l.doneKey(accountID, eventID), "1", l.retention)
	pipe.Del(ctx, l.claimKey(accountID, eventID))
	_, err := pipe.Exec(ctx)
	return err
}

func (l *RedisLedger) Release(ctx context.Context, accountID, eventID string) error {
	return l.rdb.Del(ctx, l.claimKey(accountID, eventID)).Err()
}
