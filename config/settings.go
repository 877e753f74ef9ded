package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// Settings holds all configuration for the grading engine
type Settings struct {
	// Core Identity
	ServiceID string

	// Chain Configuration
	RPCURL            string
	ChainID           int64
	ChainName         string // EIP-712 domain name
	ChainVersion      string // EIP-712 domain version
	GradeBookContract string // Grading record contract address
	GradeBookAddress  common.Address

	// Signing Authority
	SignerURL     string // Remote signing authority endpoint
	SignerAddress string // Expected signer address (shared identity)
	SignerKey     string // Hex private key for local signing (dev only)

	// Gas Parameters
	GasLimit             uint64
	MaxFeePerGas         int64 // wei; 0 means query the node
	MaxPriorityFeePerGas int64 // wei
	GasPerPubdataLimit   int64

	// Transcription Service
	TranscriberURL     string
	TranscriberTimeout time.Duration
	MaxAudioBytes      int // cap on decoded audio payload size

	// Redis Configuration (nonce coordination)
	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string
	RedisNonce    bool // use the redis-coordinated nonce source

	// API Configuration
	APIHost      string
	APIPort      int
	APIAuthToken string

	// Monitoring & Debugging
	MetricsEnabled    bool
	LogLevel          string
	DebugMode         bool
	HaltAfterSimulate bool // debug: stop the pipeline after simulation
	HaltAfterSign     bool // debug: stop the pipeline after signing

	// Performance Tuning
	ChainQueryTimeout time.Duration
}

var (
	// SettingsObj is the global settings instance
	SettingsObj *Settings
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	SettingsObj = &Settings{
		// Core Identity
		ServiceID: getEnv("SERVICE_ID", "grading-engine-1"),

		// Chain Configuration
		RPCURL:            getEnv("CHAIN_RPC_URL", ""),
		ChainID:           int64(getEnvAsInt("CHAIN_ID", 232)),
		ChainName:         getEnv("CHAIN_DOMAIN_NAME", "zkSync"),
		ChainVersion:      getEnv("CHAIN_DOMAIN_VERSION", "2"),
		GradeBookContract: getEnv("GRADEBOOK_CONTRACT", ""),

		// Signing Authority
		SignerURL:     getEnv("SIGNER_URL", ""),
		SignerAddress: getEnv("SIGNER_ADDRESS", ""),
		SignerKey:     getEnv("SIGNER_PRIVATE_KEY", ""),

		// Gas Parameters
		GasLimit:             uint64(getEnvAsInt("GAS_LIMIT", 0)),
		MaxFeePerGas:         int64(getEnvAsInt("MAX_FEE_PER_GAS", 0)),
		MaxPriorityFeePerGas: int64(getEnvAsInt("MAX_PRIORITY_FEE_PER_GAS", 0)),
		GasPerPubdataLimit:   int64(getEnvAsInt("GAS_PER_PUBDATA_LIMIT", 50000)),

		// Transcription Service
		TranscriberURL:     getEnv("TRANSCRIBER_URL", ""),
		TranscriberTimeout: time.Duration(getEnvAsInt("TRANSCRIBER_TIMEOUT", 60)) * time.Second,
		MaxAudioBytes:      getEnvAsInt("MAX_AUDIO_BYTES", 8<<20),

		// Redis Configuration
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisNonce:    getBoolEnv("REDIS_NONCE_SOURCE", false),

		// API Configuration
		APIHost:      getEnv("API_HOST", "0.0.0.0"),
		APIPort:      getEnvAsInt("API_PORT", 8080),
		APIAuthToken: getEnv("API_AUTH_TOKEN", ""),

		// Monitoring & Debugging
		MetricsEnabled:    getBoolEnv("METRICS_ENABLED", true),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DebugMode:         getBoolEnv("DEBUG_MODE", false),
		HaltAfterSimulate: getBoolEnv("HALT_AFTER_SIMULATE", false),
		HaltAfterSign:     getBoolEnv("HALT_AFTER_SIGN", false),

		// Performance Tuning
		ChainQueryTimeout: time.Duration(getEnvAsInt("CHAIN_QUERY_TIMEOUT", 30)) * time.Second,
	}

	// Configure logging
	configureLogging()

	// Validate configuration
	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Log configuration summary
	logConfigSummary()

	return nil
}

// configureLogging sets up the logger based on configuration
func configureLogging() {
	switch strings.ToLower(SettingsObj.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	// Override with debug mode
	if SettingsObj.DebugMode {
		log.SetLevel(log.DebugLevel)
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

// validateConfig validates the loaded configuration
func validateConfig() error {
	if SettingsObj.GradeBookContract != "" {
		if !common.IsHexAddress(SettingsObj.GradeBookContract) {
			return fmt.Errorf("GRADEBOOK_CONTRACT is not a valid address: %s", SettingsObj.GradeBookContract)
		}
		SettingsObj.GradeBookAddress = common.HexToAddress(SettingsObj.GradeBookContract)
	}

	if SettingsObj.SignerURL == "" && SettingsObj.SignerKey == "" {
		return fmt.Errorf("either SIGNER_URL or SIGNER_PRIVATE_KEY must be configured")
	}

	if SettingsObj.SignerURL != "" && SettingsObj.SignerAddress == "" {
		return fmt.Errorf("SIGNER_ADDRESS required when using a remote signing authority")
	}

	if SettingsObj.SignerAddress != "" && !common.IsHexAddress(SettingsObj.SignerAddress) {
		return fmt.Errorf("SIGNER_ADDRESS is not a valid address: %s", SettingsObj.SignerAddress)
	}

	if SettingsObj.MaxAudioBytes <= 0 {
		return fmt.Errorf("MAX_AUDIO_BYTES must be positive, got %d", SettingsObj.MaxAudioBytes)
	}

	if SettingsObj.RedisNonce && SettingsObj.RedisHost == "" {
		return fmt.Errorf("Redis configuration required when REDIS_NONCE_SOURCE is enabled")
	}

	return nil
}

// logConfigSummary logs a summary of the configuration
func logConfigSummary() {
	log.Info("=== Configuration Loaded ===")
	log.Infof("Service ID: %s", SettingsObj.ServiceID)
	log.Infof("Chain: %s v%s (ID %d)", SettingsObj.ChainName, SettingsObj.ChainVersion, SettingsObj.ChainID)

	if SettingsObj.RPCURL != "" {
		log.Infof("RPC URL: %s", SettingsObj.RPCURL)
	}

	if SettingsObj.GradeBookContract != "" {
		log.Infof("GradeBook Contract: %s", SettingsObj.GradeBookAddress.Hex())
	}

	if SettingsObj.SignerURL != "" {
		log.Infof("Signing Authority: remote (%s), signer %s", SettingsObj.SignerURL, SettingsObj.SignerAddress)
	} else {
		log.Info("Signing Authority: local key")
	}

	if SettingsObj.RedisNonce {
		log.Infof("Nonce Source: redis (%s:%s DB %d)", SettingsObj.RedisHost, SettingsObj.RedisPort, SettingsObj.RedisDB)
	} else {
		log.Info("Nonce Source: on-demand chain query")
	}

	if SettingsObj.HaltAfterSimulate || SettingsObj.HaltAfterSign {
		log.Warnf("Debug halts enabled: afterSimulate=%v afterSign=%v",
			SettingsObj.HaltAfterSimulate, SettingsObj.HaltAfterSign)
	}

	log.Info("============================")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		value = strings.ToLower(value)
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
