package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTx() *Transaction {
	return &Transaction{
		Nonce:                big.NewInt(7),
		MaxPriorityFeePerGas: big.NewInt(100_000_000),
		MaxFeePerGas:         big.NewInt(250_000_000),
		GasLimit:             big.NewInt(400_000),
		To:                   common.HexToAddress("0x000AA7d3a6a2556496f363B59e56D9aA1881548F"),
		Value:                big.NewInt(0),
		Data:                 []byte{0xde, 0xad, 0xbe, 0xef},
		ChainID:              big.NewInt(232),
		From:                 common.HexToAddress("0xa865187E8E86ae8c649a7bD8DE1C6E0a3Bd4b2Be"),
		GasPerPubdataLimit:   big.NewInt(50_000),
		FactoryDeps:          [][]byte{},
		CustomSignature:      []byte{},
		Paymaster:            []PaymasterParams{},
	}
}

func TestSigningDigestDeterministic(t *testing.T) {
	tx := sampleTx()

	d1, err := tx.SigningDigest("zkSync", "2")
	require.NoError(t, err)
	d2, err := tx.SigningDigest("zkSync", "2")
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, [32]byte{}, d1)
}

func TestSigningDigestBoundToFields(t *testing.T) {
	base := sampleTx()
	baseDigest, err := base.SigningDigest("zkSync", "2")
	require.NoError(t, err)

	mutations := map[string]func(*Transaction){
		"nonce":     func(tx *Transaction) { tx.Nonce = big.NewInt(8) },
		"max fee":   func(tx *Transaction) { tx.MaxFeePerGas = big.NewInt(250_000_001) },
		"gas limit": func(tx *Transaction) { tx.GasLimit = big.NewInt(400_001) },
		"recipient": func(tx *Transaction) { tx.To = common.HexToAddress("0x1111111111111111111111111111111111111111") },
		"value":     func(tx *Transaction) { tx.Value = big.NewInt(1) },
		"payload":   func(tx *Transaction) { tx.Data = []byte{0xde, 0xad, 0xbe, 0xef, 0x00} },
		"chain id":  func(tx *Transaction) { tx.ChainID = big.NewInt(300) },
		"sender":    func(tx *Transaction) { tx.From = common.HexToAddress("0x2222222222222222222222222222222222222222") },
		"pubdata":   func(tx *Transaction) { tx.GasPerPubdataLimit = big.NewInt(50_001) },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tx := sampleTx()
			mutate(tx)
			digest, err := tx.SigningDigest("zkSync", "2")
			require.NoError(t, err)
			assert.NotEqual(t, baseDigest, digest, "mutating %s must change the digest", name)
		})
	}
}

func TestSigningDigestBoundToDomain(t *testing.T) {
	tx := sampleTx()

	d1, err := tx.SigningDigest("zkSync", "2")
	require.NoError(t, err)
	d2, err := tx.SigningDigest("zkSync", "3")
	require.NoError(t, err)
	d3, err := tx.SigningDigest("otherNet", "2")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}

func TestMinimalBig(t *testing.T) {
	assert.Nil(t, minimalBig(nil))
	assert.Nil(t, minimalBig(big.NewInt(0)))
	assert.Equal(t, []byte{0x01}, minimalBig(big.NewInt(1)))
	assert.Equal(t, []byte{0x01, 0x00}, minimalBig(big.NewInt(256)))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tx := sampleTx()

	var r, s [32]byte
	r[0] = 0x01 // high byte set: must survive unpadded
	s[31] = 0x7f
	yParity := byte(1)

	raw, err := tx.Encode(yParity, r, s)
	require.NoError(t, err)
	require.Equal(t, byte(TxTypeExtended), raw[0], "type tag must prefix the payload")

	decoded, gotParity, gotR, gotS, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, yParity, gotParity)
	assert.Equal(t, r, gotR)
	assert.Equal(t, s, gotS)

	assert.Zero(t, tx.Nonce.Cmp(decoded.Nonce))
	assert.Zero(t, tx.MaxPriorityFeePerGas.Cmp(decoded.MaxPriorityFeePerGas))
	assert.Zero(t, tx.MaxFeePerGas.Cmp(decoded.MaxFeePerGas))
	assert.Zero(t, tx.GasLimit.Cmp(decoded.GasLimit))
	assert.Equal(t, tx.To, decoded.To)
	assert.Zero(t, tx.Value.Cmp(decoded.Value))
	assert.Equal(t, tx.Data, decoded.Data)
	assert.Zero(t, tx.ChainID.Cmp(decoded.ChainID))
	assert.Equal(t, tx.From, decoded.From)
	assert.Zero(t, tx.GasPerPubdataLimit.Cmp(decoded.GasPerPubdataLimit))
	assert.Empty(t, decoded.FactoryDeps)
	assert.Empty(t, decoded.CustomSignature)
	assert.Empty(t, decoded.Paymaster)
}

func TestEncodeDecodeLowValueSignature(t *testing.T) {
	// Signature components with many leading zeros must stay 32 bytes on
	// the wire instead of being minimally encoded.
	tx := sampleTx()

	var r, s [32]byte
	r[31] = 0x01
	s[31] = 0x02

	raw, err := tx.Encode(0, r, s)
	require.NoError(t, err)

	_, _, gotR, gotS, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, r, gotR)
	assert.Equal(t, s, gotS)
}

func TestDecodeRejectsWrongTag(t *testing.T) {
	tx := sampleTx()
	raw, err := tx.Encode(0, [32]byte{}, [32]byte{})
	require.NoError(t, err)

	raw[0] = 0x02
	_, _, _, _, err = Decode(raw)
	assert.Error(t, err)

	_, _, _, _, err = Decode(nil)
	assert.Error(t, err)
}

func TestPackRecordAttempt(t *testing.T) {
	var attemptID, itemID [32]byte
	attemptID[31] = 0x01
	itemID[31] = 0x02
	learner := common.HexToAddress("0xa865187E8E86ae8c649a7bD8DE1C6E0a3Bd4b2Be")

	data, err := PackRecordAttempt(attemptID, itemID, learner, 8500, 2)
	require.NoError(t, err)

	// 4-byte selector + 5 words
	assert.Len(t, data, 4+5*32)

	// Same arguments pack identically
	again, err := PackRecordAttempt(attemptID, itemID, learner, 8500, 2)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
