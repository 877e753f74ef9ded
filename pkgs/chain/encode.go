package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// wireTx is the on-wire shape of the extended transaction: the sixteen
// fields in canonical order, including the signature slots. RLP encodes
// *big.Int minimally; the fixed-size r/s arrays keep those two fields at
// exactly 32 bytes regardless of value.
type wireTx struct {
	Nonce                *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	GasLimit             *big.Int
	To                   common.Address
	Value                *big.Int
	Data                 []byte
	YParity              *big.Int
	R                    [32]byte
	S                    [32]byte
	ChainID              *big.Int
	From                 common.Address
	GasPerPubdataLimit   *big.Int
	FactoryDeps          [][]byte
	CustomSignature      []byte
	Paymaster            []PaymasterParams
}

// Encode serializes the transaction with the given signature into the
// chain's extended binary encoding, prefixed with the one-byte type tag.
// The result is what gets broadcast.
func (tx *Transaction) Encode(yParity byte, r, s [32]byte) ([]byte, error) {
	wire := &wireTx{
		Nonce:                orZero(tx.Nonce),
		MaxPriorityFeePerGas: orZero(tx.MaxPriorityFeePerGas),
		MaxFeePerGas:         orZero(tx.MaxFeePerGas),
		GasLimit:             orZero(tx.GasLimit),
		To:                   tx.To,
		Value:                orZero(tx.Value),
		Data:                 tx.Data,
		YParity:              big.NewInt(int64(yParity)),
		R:                    r,
		S:                    s,
		ChainID:              orZero(tx.ChainID),
		From:                 tx.From,
		GasPerPubdataLimit:   orZero(tx.GasPerPubdataLimit),
		FactoryDeps:          tx.FactoryDeps,
		CustomSignature:      tx.CustomSignature,
		Paymaster:            tx.Paymaster,
	}

	payload, err := rlp.EncodeToBytes(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to RLP-encode transaction: %w", err)
	}

	return append([]byte{TxTypeExtended}, payload...), nil
}

// Decode parses an encoded extended transaction back into its field values
// and signature. It is the exact inverse of Encode.
func Decode(raw []byte) (*Transaction, byte, [32]byte, [32]byte, error) {
	var r, s [32]byte

	if len(raw) == 0 {
		return nil, 0, r, s, fmt.Errorf("empty transaction payload")
	}
	if raw[0] != TxTypeExtended {
		return nil, 0, r, s, fmt.Errorf("unexpected transaction type tag: 0x%02x", raw[0])
	}

	var wire wireTx
	if err := rlp.DecodeBytes(raw[1:], &wire); err != nil {
		return nil, 0, r, s, fmt.Errorf("failed to RLP-decode transaction: %w", err)
	}

	tx := &Transaction{
		Nonce:                wire.Nonce,
		MaxPriorityFeePerGas: wire.MaxPriorityFeePerGas,
		MaxFeePerGas:         wire.MaxFeePerGas,
		GasLimit:             wire.GasLimit,
		To:                   wire.To,
		Value:                wire.Value,
		Data:                 wire.Data,
		ChainID:              wire.ChainID,
		From:                 wire.From,
		GasPerPubdataLimit:   wire.GasPerPubdataLimit,
		FactoryDeps:          wire.FactoryDeps,
		CustomSignature:      wire.CustomSignature,
		Paymaster:            wire.Paymaster,
	}

	return tx, byte(wire.YParity.Uint64()), wire.R, wire.S, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
