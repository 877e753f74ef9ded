// Package pipeline drives a prepared grading record through
// SIMULATE → ASSIGN_NONCE → SIGN → ENCODE → BROADCAST. Each external step
// runs at most once per invocation; retry policy belongs to the caller,
// because blindly retrying a nonce-consuming broadcast risks double
// submission.
package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/techno-hippies/karaoke-school-sub006/pkgs/chain"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/nonce"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/signer"
)

// Config holds the chain parameters for transaction assembly
type Config struct {
	ChainID      int64
	ChainName    string // EIP-712 domain name
	ChainVersion string // EIP-712 domain version
	Contract     common.Address

	GasLimit             uint64 // 0 means estimate
	MaxFeePerGas         int64  // wei; 0 means query the node
	MaxPriorityFeePerGas int64  // wei; 0 means query the node
	GasPerPubdataLimit   int64

	// Debug halts for integration testing without mutating chain state
	HaltAfterSimulate bool
	HaltAfterSign     bool
}

// Request is one submission to run through the pipeline
type Request struct {
	Calldata []byte
	// Nonce, when set, is a caller-coordinated nonce and wins over the
	// pipeline's own source. Required when concurrent submissions share
	// the signer.
	Nonce *uint64
}

// Pipeline orchestrates simulate, sign, encode and broadcast
type Pipeline struct {
	backend     Backend
	coordinator *signer.Coordinator
	nonces      nonce.Source
	cfg         Config
}

// New creates a pipeline
func New(backend Backend, coordinator *signer.Coordinator, nonces nonce.Source, cfg Config) *Pipeline {
	return &Pipeline{
		backend:     backend,
		coordinator: coordinator,
		nonces:      nonces,
		cfg:         cfg,
	}
}

// Submit runs the state machine once. Simulation and broadcast failures
// come back as classified Results; a signature mismatch or internal
// assembly failure is returned as an error and invalidates the attempt.
func (p *Pipeline) Submit(ctx context.Context, req *Request) (*Result, error) {
	from := p.coordinator.Signer()

	// SIMULATE: read-only call with the same arguments, surfacing a
	// revert reason before any nonce or fee is spent
	callMsg := ethereum.CallMsg{
		From: from,
		To:   &p.cfg.Contract,
		Data: req.Calldata,
	}
	if _, err := p.backend.CallContract(ctx, callMsg, nil); err != nil {
		log.WithFields(log.Fields{
			"contract": p.cfg.Contract.Hex(),
			"reason":   err.Error(),
		}).Warn("Simulation reverted; submission aborted")
		return &Result{
			Status: StatusSimulationFailed,
			Reason: err.Error(),
		}, nil
	}

	if p.cfg.HaltAfterSimulate {
		return &Result{Status: StatusSimulated}, nil
	}

	// ASSIGN_NONCE: caller-coordinated nonce wins
	var txNonce uint64
	if req.Nonce != nil {
		txNonce = *req.Nonce
	} else {
		var err error
		txNonce, err = p.nonces.Next(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("nonce assignment failed: %w", err)
		}
	}

	tx, err := p.assemble(ctx, from, txNonce, req.Calldata)
	if err != nil {
		return nil, err
	}

	// SIGN: digest to the authority, recovery verified before anything
	// else happens
	digest, err := tx.SigningDigest(p.cfg.ChainName, p.cfg.ChainVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to compute signing digest: %w", err)
	}

	sig, err := p.coordinator.Sign(ctx, digest)
	if err != nil {
		return nil, err
	}

	// ENCODE: sixteen fields, type-tag prefixed
	raw, err := tx.Encode(sig.V, sig.R, sig.S)
	if err != nil {
		return nil, err
	}

	if p.cfg.HaltAfterSign {
		return &Result{
			Status:        StatusSigned,
			Nonce:         &txNonce,
			SignedPayload: raw,
		}, nil
	}

	// BROADCAST: exactly once; rejection reasons are preserved verbatim
	// and retries are the caller's decision
	txHash, err := p.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		log.WithFields(log.Fields{
			"nonce":  txNonce,
			"signer": from.Hex(),
			"reason": err.Error(),
		}).Error("Broadcast rejected")
		return &Result{
			Status: StatusSubmissionFailed,
			Reason: err.Error(),
			Nonce:  &txNonce,
		}, nil
	}

	log.WithFields(log.Fields{
		"tx_hash": txHash.Hex(),
		"nonce":   txNonce,
		"signer":  from.Hex(),
	}).Info("Transaction submitted")

	return &Result{
		Status: StatusSubmitted,
		TxHash: txHash.Hex(),
		Nonce:  &txNonce,
	}, nil
}

// assemble fills in the sixteen-field transaction, querying the node for
// any gas parameter not pinned by config.
func (p *Pipeline) assemble(ctx context.Context, from common.Address, txNonce uint64, calldata []byte) (*chain.Transaction, error) {
	gasLimit := p.cfg.GasLimit
	if gasLimit == 0 {
		estimated, err := p.backend.EstimateGas(ctx, ethereum.CallMsg{
			From: from,
			To:   &p.cfg.Contract,
			Data: calldata,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
		// 20% buffer
		gasLimit = uint64(float64(estimated) * 1.2)
	}

	maxFee := big.NewInt(p.cfg.MaxFeePerGas)
	if maxFee.Sign() == 0 {
		suggested, err := p.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas price: %w", err)
		}
		maxFee = suggested
	}

	tip := big.NewInt(p.cfg.MaxPriorityFeePerGas)
	if tip.Sign() == 0 {
		suggested, err := p.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
		}
		tip = suggested
	}

	return &chain.Transaction{
		Nonce:                new(big.Int).SetUint64(txNonce),
		MaxPriorityFeePerGas: tip,
		MaxFeePerGas:         maxFee,
		GasLimit:             new(big.Int).SetUint64(gasLimit),
		To:                   p.cfg.Contract,
		Value:                big.NewInt(0),
		Data:                 calldata,
		ChainID:              big.NewInt(p.cfg.ChainID),
		From:                 from,
		GasPerPubdataLimit:   big.NewInt(p.cfg.GasPerPubdataLimit),
		FactoryDeps:          [][]byte{},
		CustomSignature:      []byte{},
		Paymaster:            []chain.PaymasterParams{},
	}, nil
}
