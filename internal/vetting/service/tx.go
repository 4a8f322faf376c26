package service

import (
	"context"
	"sync"
	"time"

	dErrors "gatherhall/pkg/domain-errors"
)

// StoreTx provides the atomic boundary for workflow mutations: the
// application update, the audit insert, and the linked-user permission
// sync commit together or not at all. Implementations may wrap a
// database transaction (carried in the callback context) or, in-memory,
// a sharded lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// shardedStoreTx provides fine-grained locking using sharded mutexes.
// Operations are distributed across N shards based on a hash of the
// application ID, reducing contention under concurrent load.
const numTxShards = 128

// defaultTxTimeout is the maximum duration for a workflow transaction.
const defaultTxTimeout = 5 * time.Second

type shardedStoreTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

func newInMemoryStoreTx() *shardedStoreTx {
	return &shardedStoreTx{}
}

func (t *shardedStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	// Check if context is already cancelled
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Apply timeout if not already set
	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// selectShard picks a shard based on the tx key from context, or defaults to shard 0.
func (t *shardedStoreTx) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(txKeyCtx).(string); ok && key != "" {
		return int(hashTxKey(key) % numTxShards)
	}
	return 0
}

// hashTxKey uses FNV-1a for better hash distribution than simple multiply-add.
func hashTxKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type txKey struct{}

var txKeyCtx = txKey{}

// withTxKey tags the context with the lock key for shard selection.
func withTxKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, txKeyCtx, key)
}
