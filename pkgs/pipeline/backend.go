package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the chain surface the pipeline needs: read-only simulation
// and fee/nonce queries, plus raw broadcast.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
}

// RPCBackend implements Backend over a JSON-RPC node connection
type RPCBackend struct {
	eth *ethclient.Client
	rpc *rpc.Client
}

// Dial connects to the node at the given URL
func Dial(ctx context.Context, url string) (*RPCBackend, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain node: %w", err)
	}
	return &RPCBackend{
		eth: ethclient.NewClient(rpcClient),
		rpc: rpcClient,
	}, nil
}

func (b *RPCBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.eth.CallContract(ctx, msg, blockNumber)
}

func (b *RPCBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return b.eth.PendingNonceAt(ctx, account)
}

func (b *RPCBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return b.eth.EstimateGas(ctx, msg)
}

func (b *RPCBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return b.eth.SuggestGasPrice(ctx)
}

func (b *RPCBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return b.eth.SuggestGasTipCap(ctx)
}

// SendRawTransaction broadcasts pre-encoded transaction bytes. The
// extended type tag is already part of the payload, so this goes through
// the raw RPC surface rather than ethclient's typed SendTransaction.
func (b *RPCBackend) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var txHash common.Hash
	if err := b.rpc.CallContext(ctx, &txHash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, err
	}
	return txHash, nil
}

// Close closes the node connection
func (b *RPCBackend) Close() {
	b.rpc.Close()
}
