package signer

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

// ErrSignerMismatch means the signature recovered to an address other than
// the expected signer. This is a hard stop: broadcasting a transaction
// signed with the wrong key, or against a stale digest, is irreversible.
var ErrSignerMismatch = errors.New("recovered signer does not match expected signer")

// Coordinator obtains signatures from an authority and verifies them
// against the expected signer address before anything is broadcast.
type Coordinator struct {
	authority Authority
	expected  common.Address
}

// NewCoordinator creates a coordinator for the given authority and signer
func NewCoordinator(authority Authority, expected common.Address) *Coordinator {
	return &Coordinator{
		authority: authority,
		expected:  expected,
	}
}

// Signer returns the expected signer address
func (c *Coordinator) Signer() common.Address {
	return c.expected
}

// Sign requests a signature over the digest and verifies recovery before
// returning. A mismatch is never retried.
func (c *Coordinator) Sign(ctx context.Context, digest [32]byte) (*Signature, error) {
	sig, err := c.authority.SignDigest(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("signing authority failed: %w", err)
	}

	if sig.Digest != digest {
		log.WithFields(log.Fields{
			"requested_digest": fmt.Sprintf("0x%x", digest),
			"signed_digest":    fmt.Sprintf("0x%x", sig.Digest),
		}).Error("SECURITY: signature returned for a different digest")
		return nil, fmt.Errorf("%w: signature covers a different digest", ErrSignerMismatch)
	}

	recovered, err := RecoverSigner(digest, sig)
	if err != nil {
		return nil, fmt.Errorf("signature recovery failed: %w", err)
	}

	if !bytes.Equal(recovered.Bytes(), c.expected.Bytes()) {
		log.WithFields(log.Fields{
			"expected":  c.expected.Hex(),
			"recovered": recovered.Hex(),
			"claimed":   sig.Signer.Hex(),
			"digest":    fmt.Sprintf("0x%x", digest),
		}).Error("SECURITY: recovered signer does not match expected signer")
		return nil, ErrSignerMismatch
	}

	return sig, nil
}

// RecoverSigner recovers the address that produced the signature over the
// given digest.
func RecoverSigner(digest [32]byte, sig *Signature) (common.Address, error) {
	if sig.V > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id: %d", sig.V)
	}

	pubKeyRaw, err := crypto.Ecrecover(digest[:], sig.Bytes())
	if err != nil {
		return common.Address{}, fmt.Errorf("ecrecover failed: %w", err)
	}

	pubKey, err := crypto.UnmarshalPubkey(pubKeyRaw)
	if err != nil {
		return common.Address{}, fmt.Errorf("pubkey unmarshal failed: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
