package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TxTypeExtended is the one-byte type tag of the chain's EIP-712 extended
// transaction format.
const TxTypeExtended = 0x71

// PaymasterParams is the paymaster slot of the extended transaction format.
// Unused by this engine; always encoded empty.
type PaymasterParams struct {
	Paymaster common.Address
	Input     []byte
}

// Transaction is the sixteen-field extended transaction. Field order is
// fixed and exhaustive: it is the order hashed into the signing digest and
// the order serialized on the wire, and any deviation invalidates the
// signature.
type Transaction struct {
	Nonce                *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	GasLimit             *big.Int
	To                   common.Address
	Value                *big.Int
	Data                 []byte
	ChainID              *big.Int
	From                 common.Address
	GasPerPubdataLimit   *big.Int
	FactoryDeps          [][]byte
	CustomSignature      []byte
	Paymaster            []PaymasterParams
}

// transactionType is the struct-hash type string for the extended
// transaction. The signing digest is bound to this exact shape.
const transactionType = "Transaction(uint8 txType,uint256 nonce,uint256 maxPriorityFeePerGas,uint256 maxFeePerGas,uint256 gasLimit,address to,uint256 value,bytes data,uint256 yParity,bytes32 r,bytes32 s,uint256 chainId,address from,uint256 gasPerPubdataByteLimit,bytes32[] factoryDeps,bytes customSignature,bytes paymasterParams)"

var transactionTypeHash = crypto.Keccak256([]byte(transactionType))

// DomainSeparator computes the EIP-712 domain separator binding signatures
// to the network name, version and chain id.
func DomainSeparator(name, version string, chainID *big.Int) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
		},
		PrimaryType: "EIP712Domain",
		Domain: apitypes.TypedDataDomain{
			Name:    name,
			Version: version,
			ChainId: (*math.HexOrDecimal256)(chainID),
		},
	}

	separator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	return separator, nil
}

// StructHash hashes the transaction type string and the sixteen ordered
// fields. Numeric fields are minimally big-endian encoded with no leading
// zero byte; the r/s signature placeholders are always exactly 32 bytes.
// The placeholders are zero here because the hash is computed before any
// signature exists.
func (tx *Transaction) StructHash() []byte {
	var zero32 [32]byte

	buf := make([]byte, 0, 512)
	buf = append(buf, transactionTypeHash...)
	buf = append(buf, TxTypeExtended)
	buf = append(buf, minimalBig(tx.Nonce)...)
	buf = append(buf, minimalBig(tx.MaxPriorityFeePerGas)...)
	buf = append(buf, minimalBig(tx.MaxFeePerGas)...)
	buf = append(buf, minimalBig(tx.GasLimit)...)
	buf = append(buf, tx.To.Bytes()...)
	buf = append(buf, minimalBig(tx.Value)...)
	buf = append(buf, tx.Data...)
	// y-parity placeholder (minimal encoding of zero is empty)
	buf = append(buf, zero32[:]...) // r placeholder, never trimmed
	buf = append(buf, zero32[:]...) // s placeholder, never trimmed
	buf = append(buf, minimalBig(tx.ChainID)...)
	buf = append(buf, tx.From.Bytes()...)
	buf = append(buf, minimalBig(tx.GasPerPubdataLimit)...)
	for _, dep := range tx.FactoryDeps {
		buf = append(buf, crypto.Keccak256(dep)...)
	}
	buf = append(buf, tx.CustomSignature...)
	for _, pm := range tx.Paymaster {
		buf = append(buf, pm.Paymaster.Bytes()...)
		buf = append(buf, pm.Input...)
	}

	return crypto.Keccak256(buf)
}

// SigningDigest computes the 32-byte digest handed to the signing
// authority: keccak256("\x19\x01" ‖ domainSeparator ‖ structHash).
func (tx *Transaction) SigningDigest(name, version string) ([32]byte, error) {
	var digest [32]byte

	domainSeparator, err := DomainSeparator(name, version, tx.ChainID)
	if err != nil {
		return digest, err
	}

	rawData := append([]byte{0x19, 0x01}, domainSeparator...)
	rawData = append(rawData, tx.StructHash()...)
	copy(digest[:], crypto.Keccak256(rawData))

	return digest, nil
}

// minimalBig returns the minimal big-endian representation of v with no
// leading zero byte. Zero and nil encode as empty.
func minimalBig(v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return nil
	}
	return v.Bytes()
}
