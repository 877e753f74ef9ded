package signer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature is an ECDSA signature over a specific digest, together with
// the address the signing authority claims it corresponds to.
type Signature struct {
	R      [32]byte
	S      [32]byte
	V      byte // recovery id, 0 or 1
	Signer common.Address
	Digest [32]byte // the digest this signature was computed over
}

// Bytes returns the 65-byte r ‖ s ‖ v form
func (s *Signature) Bytes() []byte {
	sig := make([]byte, 65)
	copy(sig[0:32], s.R[:])
	copy(sig[32:64], s.S[:])
	sig[64] = s.V
	return sig
}

// Authority produces signatures over 32-byte digests. The identity behind
// it may be shared across many concurrent callers and is not assumed to be
// exclusively controlled by this process.
type Authority interface {
	SignDigest(ctx context.Context, digest [32]byte) (*Signature, error)
}

// LocalAuthority signs with an in-process ECDSA key. Used for tests and
// single-operator deployments where the key is not shared.
type LocalAuthority struct {
	key    *ecdsa.PrivateKey
	signer common.Address
}

// NewLocalAuthority creates a local authority from a hex-encoded private key
func NewLocalAuthority(hexKey string) (*LocalAuthority, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &LocalAuthority{
		key:    key,
		signer: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Signer returns the address this authority signs as
func (a *LocalAuthority) Signer() common.Address {
	return a.signer
}

// SignDigest signs the digest with the local key
func (a *LocalAuthority) SignDigest(_ context.Context, digest [32]byte) (*Signature, error) {
	raw, err := crypto.Sign(digest[:], a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}

	sig := &Signature{
		V:      raw[64],
		Signer: a.signer,
		Digest: digest,
	}
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	return sig, nil
}

// RemoteAuthority talks to an external signing service over HTTP. The
// service accepts a digest and returns (r, s, recoveryId) plus the address
// the signature corresponds to.
type RemoteAuthority struct {
	url        string
	httpClient *http.Client
}

// NewRemoteAuthority creates a client for a remote signing service
func NewRemoteAuthority(url string, timeout time.Duration) *RemoteAuthority {
	return &RemoteAuthority{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type signRequest struct {
	Digest string `json:"digest"`
}

type signResponse struct {
	R          string `json:"r"`
	S          string `json:"s"`
	RecoveryID byte   `json:"recoveryId"`
	Address    string `json:"address"`
}

// SignDigest sends the digest to the signing service and parses the result
func (a *RemoteAuthority) SignDigest(ctx context.Context, digest [32]byte) (*Signature, error) {
	body, err := json.Marshal(&signRequest{Digest: hexutil.Encode(digest[:])})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signing authority unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signing authority returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed signResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse signing response: %w", err)
	}

	rBytes, err := hexutil.Decode(parsed.R)
	if err != nil {
		return nil, fmt.Errorf("invalid r component: %w", err)
	}
	sBytes, err := hexutil.Decode(parsed.S)
	if err != nil {
		return nil, fmt.Errorf("invalid s component: %w", err)
	}
	if len(rBytes) > 32 || len(sBytes) > 32 {
		return nil, fmt.Errorf("signature component too long: r=%d s=%d bytes", len(rBytes), len(sBytes))
	}
	if !common.IsHexAddress(parsed.Address) {
		return nil, fmt.Errorf("invalid signer address in response: %s", parsed.Address)
	}

	// Recovery id may arrive as 0/1 or 27/28
	v := parsed.RecoveryID
	if v == 27 || v == 28 {
		v -= 27
	}
	if v > 1 {
		return nil, fmt.Errorf("invalid recovery id: %d", parsed.RecoveryID)
	}

	sig := &Signature{
		V:      v,
		Signer: common.HexToAddress(parsed.Address),
		Digest: digest,
	}
	// Components are left-padded to 32 bytes
	copy(sig.R[32-len(rBytes):], rBytes)
	copy(sig.S[32-len(sBytes):], sBytes)
	return sig, nil
}
