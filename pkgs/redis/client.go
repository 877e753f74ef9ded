package redis

import (
	"context"
	"fmt"

	redislib "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/techno-hippies/karaoke-school-sub006/config"
)

// RedisClient is the shared client instance
var RedisClient *redislib.Client

// NewRedisClient creates a client from the loaded settings
func NewRedisClient() *redislib.Client {
	settings := config.SettingsObj
	client := redislib.NewClient(&redislib.Options{
		Addr:     fmt.Sprintf("%s:%s", settings.RedisHost, settings.RedisPort),
		Password: settings.RedisPassword,
		DB:       settings.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warnf("Redis ping failed: %v", err)
	}

	return client
}

// KeyBuilder provides methods to generate namespaced Redis keys
type KeyBuilder struct {
	ChainID  int64
	Contract string
}

// NewKeyBuilder creates a KeyBuilder scoped to a chain and contract
func NewKeyBuilder(chainID int64, contract string) *KeyBuilder {
	return &KeyBuilder{
		ChainID:  chainID,
		Contract: contract,
	}
}

// SignerNonce returns the key holding the coordinated nonce counter for a
// signer address. A single authority owns this counter; pipelines consume
// it via atomic INCR.
func (kb *KeyBuilder) SignerNonce(signer string) string {
	return fmt.Sprintf("%d:%s:signerNonce:%s", kb.ChainID, kb.Contract, signer)
}

// AttemptRecord returns the key for a submitted attempt's correlation data
func (kb *KeyBuilder) AttemptRecord(attemptID string) string {
	return fmt.Sprintf("%d:%s:attempt:%s", kb.ChainID, kb.Contract, attemptID)
}
