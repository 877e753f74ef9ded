package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/techno-hippies/karaoke-school-sub006/pkgs/grading"
)

// attemptRecordTTL bounds how long attempt records are kept for the
// reconciliation job; the on-chain record is the durable source of truth.
const attemptRecordTTL = 30 * 24 * time.Hour

// AttemptStore persists graded outcomes under the AttemptRecord key so a
// reconciliation job can re-submit graded-but-unsubmitted attempts.
type AttemptStore struct {
	client *redislib.Client
	keys   *KeyBuilder
}

// NewAttemptStore creates a store scoped by the key builder's chain and
// contract namespace
func NewAttemptStore(client *redislib.Client, keys *KeyBuilder) *AttemptStore {
	return &AttemptStore{
		client: client,
		keys:   keys,
	}
}

// SaveOutcome writes the outcome as JSON with a bounded TTL
func (s *AttemptStore) SaveOutcome(ctx context.Context, attemptID string, outcome *grading.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt record: %w", err)
	}

	key := s.keys.AttemptRecord(attemptID)
	if err := s.client.Set(ctx, key, data, attemptRecordTTL).Err(); err != nil {
		return fmt.Errorf("failed to store attempt record: %w", err)
	}
	return nil
}
