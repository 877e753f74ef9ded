package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/techno-hippies/karaoke-school-sub006/config"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/grading"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/metrics"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/nonce"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/pipeline"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/redis"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/service"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/signer"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/transcribe"
)

func main() {
	godotenv.Load()

	if err := config.LoadConfig(); err != nil {
		log.Fatal(err)
	}
	settings := config.SettingsObj

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := pipeline.Dial(ctx, settings.RPCURL)
	if err != nil {
		log.Fatalf("Failed to connect to chain node: %v", err)
	}
	defer backend.Close()

	coordinator, err := buildCoordinator(settings)
	if err != nil {
		log.Fatal(err)
	}

	var nonceSource nonce.Source = nonce.NewChainSource(backend)
	var attemptStore grading.Store
	if settings.RedisNonce {
		redis.RedisClient = redis.NewRedisClient()
		keys := redis.NewKeyBuilder(settings.ChainID, settings.GradeBookAddress.Hex())
		nonceSource = nonce.NewRedisSource(redis.RedisClient, keys.SignerNonce, backend)
		attemptStore = redis.NewAttemptStore(redis.RedisClient, keys)
	}

	pipe := pipeline.New(backend, coordinator, nonceSource, pipeline.Config{
		ChainID:              settings.ChainID,
		ChainName:            settings.ChainName,
		ChainVersion:         settings.ChainVersion,
		Contract:             settings.GradeBookAddress,
		GasLimit:             settings.GasLimit,
		MaxFeePerGas:         settings.MaxFeePerGas,
		MaxPriorityFeePerGas: settings.MaxPriorityFeePerGas,
		GasPerPubdataLimit:   settings.GasPerPubdataLimit,
		HaltAfterSimulate:    settings.HaltAfterSimulate,
		HaltAfterSign:        settings.HaltAfterSign,
	})

	grading.MaxAudioBytes = settings.MaxAudioBytes
	transcriber := transcribe.NewClient(settings.TranscriberURL, settings.TranscriberTimeout)

	var m *metrics.Metrics
	if settings.MetricsEnabled {
		m = metrics.New()
	}

	grader := grading.New(transcriber, pipe, attemptStore, m)
	server := service.NewServer(grader, m, settings.APIAuthToken, settings.DebugMode)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", settings.APIHost, settings.APIPort),
		Handler: server.Handler(),
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("Starting grading API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server shutdown failed: %v", err)
	}
}

func buildCoordinator(settings *config.Settings) (*signer.Coordinator, error) {
	if settings.SignerURL != "" {
		authority := signer.NewRemoteAuthority(settings.SignerURL, settings.ChainQueryTimeout)
		return signer.NewCoordinator(authority, common.HexToAddress(settings.SignerAddress)), nil
	}

	authority, err := signer.NewLocalAuthority(settings.SignerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load local signer: %w", err)
	}
	return signer.NewCoordinator(authority, authority.Signer()), nil
}
