// Package nonce assigns transaction nonces for the shared signing
// identity. The nonce sequence is the one piece of shared mutable state in
// the system: when many pipelines sign concurrently with the same
// identity, each must draw its nonce from a single coordinating authority
// or the submissions will collide on-chain.
package nonce

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	redislib "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Source issues the next nonce for a signer
type Source interface {
	Next(ctx context.Context, signer common.Address) (uint64, error)
}

// PendingNonceReader is the chain-query surface needed by ChainSource
type PendingNonceReader interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// ChainSource queries the node for the signer's pending transaction count.
// Safe only when no concurrent submissions share the signer: two pipelines
// that both query will receive the same value.
type ChainSource struct {
	reader PendingNonceReader
}

// NewChainSource creates an on-demand chain-query source
func NewChainSource(reader PendingNonceReader) *ChainSource {
	return &ChainSource{reader: reader}
}

// Next returns the signer's current pending nonce
func (s *ChainSource) Next(ctx context.Context, signer common.Address) (uint64, error) {
	n, err := s.reader.PendingNonceAt(ctx, signer)
	if err != nil {
		return 0, fmt.Errorf("failed to query pending nonce: %w", err)
	}
	return n, nil
}

// RedisSource draws nonces from a monotonic counter held in Redis,
// providing single-authority assignment for concurrent submitters. The
// counter is seeded from the chain on first use and advanced with atomic
// INCR afterwards.
//
// A claimed nonce is never returned: if the pipeline stops after
// assignment (signer mismatch, encoding failure, broadcast rejection),
// the counter value is skipped and the sequence holds a gap until a later
// submission or an external reconciliation fills it. Consumers of the
// shared counter must tolerate such gaps.
type RedisSource struct {
	client *redislib.Client
	keyFn  func(signer string) string
	seed   PendingNonceReader
}

// NewRedisSource creates a redis-coordinated source. keyFn maps a signer
// address to its counter key; seed supplies the initial value.
func NewRedisSource(client *redislib.Client, keyFn func(signer string) string, seed PendingNonceReader) *RedisSource {
	return &RedisSource{
		client: client,
		keyFn:  keyFn,
		seed:   seed,
	}
}

// Next atomically claims the next nonce for the signer
func (s *RedisSource) Next(ctx context.Context, signer common.Address) (uint64, error) {
	key := s.keyFn(signer.Hex())

	// Seed the counter from the chain if it does not exist yet. SETNX
	// keeps concurrent seeders from racing each other.
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check nonce counter: %w", err)
	}
	if exists == 0 {
		pending, err := s.seed.PendingNonceAt(ctx, signer)
		if err != nil {
			return 0, fmt.Errorf("failed to seed nonce counter: %w", err)
		}
		// Store pending-1 so the first INCR yields the pending nonce
		set, err := s.client.SetNX(ctx, key, int64(pending)-1, 0).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to seed nonce counter: %w", err)
		}
		if set {
			log.WithFields(log.Fields{
				"signer": signer.Hex(),
				"nonce":  pending,
			}).Info("Seeded coordinated nonce counter from chain")
		}
	}

	next, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to claim nonce: %w", err)
	}
	if next < 0 {
		return 0, fmt.Errorf("nonce counter underflow: %d", next)
	}
	return uint64(next), nil
}
