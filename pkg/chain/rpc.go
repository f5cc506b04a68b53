package chain

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pactum-labs/pactum-gateway/pkg/config"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

var (
	errEndpointRequired = errors.New("chain rpc endpoint is required")
	errLoggerRequired   = errors.New("chain rpc logger is required")
)

// RPCClient speaks to an external node through go-ethereum's ethclient.
// It implements Client for deployments where the escrow contract lives
// on a real network.
type RPCClient struct {
	eth    *ethclient.Client
	logger *logger.Logger
}

// NewRPCClient validates the endpoint and dials the node. The dial is
// lazy for HTTP endpoints, so a node that is down at boot surfaces on
// the first call rather than here.
func NewRPCClient(cfg config.ChainConfig, logg *logger.Logger) (*RPCClient, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	endpoint := strings.TrimSpace(cfg.RPCURL)
	if endpoint == "" {
		return nil, errEndpointRequired
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rpcClient, err := rpc.DialOptions(context.Background(), endpoint,
		rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dial chain rpc")
	}
	return &RPCClient{eth: ethclient.NewClient(rpcClient), logger: logg}, nil
}

// Close releases the underlying transport.
func (c *RPCClient) Close() {
	c.eth.Close()
}

// BlockNumber implements Client.
func (c *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		c.logger.Error(ctx, "chain rpc eth_blockNumber failed", err)
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch block number")
	}
	return head, nil
}

// TransactionReceipt implements Client.
func (c *RPCClient) TransactionReceipt(ctx context.Context, txHash Hash) (*Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(string(txHash)))
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		c.logger.Error(ctx, "chain rpc eth_getTransactionReceipt failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch transaction receipt")
	}
	return fromEthReceipt(receipt), nil
}

// FilterLogs implements Client.
func (c *RPCClient) FilterLogs(ctx context.Context, q FilterQuery) ([]Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(q.FromBlock),
		ToBlock:   new(big.Int).SetUint64(q.ToBlock),
	}
	if !q.Address.IsZero() {
		query.Addresses = []common.Address{common.HexToAddress(string(q.Address))}
	}
	if q.Topic0 != "" {
		query.Topics = [][]common.Hash{{common.HexToHash(string(q.Topic0))}}
	}

	raw, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		c.logger.Error(ctx, "chain rpc eth_getLogs failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch logs")
	}

	logs := make([]Log, 0, len(raw))
	for _, rl := range raw {
		logs = append(logs, fromEthLog(rl))
	}
	return logs, nil
}

func fromEthReceipt(r *ethtypes.Receipt) *Receipt {
	receipt := &Receipt{
		TxHash: fromEthHash(r.TxHash),
		Status: r.Status,
		Logs:   make([]Log, 0, len(r.Logs)),
	}
	if r.BlockNumber != nil {
		receipt.BlockNumber = r.BlockNumber.Uint64()
	}
	for _, rl := range r.Logs {
		receipt.Logs = append(receipt.Logs, fromEthLog(*rl))
	}
	return receipt
}

func fromEthLog(l ethtypes.Log) Log {
	topics := make([]Hash, 0, len(l.Topics))
	for _, topic := range l.Topics {
		topics = append(topics, fromEthHash(topic))
	}
	return Log{
		Address:     fromEthAddress(l.Address),
		Topics:      topics,
		Data:        l.Data,
		BlockNumber: l.BlockNumber,
		TxHash:      fromEthHash(l.TxHash),
		Index:       l.Index,
	}
}

// fromEthAddress lowercases the EIP-55 checksummed form Hex returns, so
// addresses stay comparable across the package.
func fromEthAddress(a common.Address) Address {
	return Address(strings.ToLower(a.Hex()))
}

func fromEthHash(h common.Hash) Hash {
	return Hash(h.Hex())
}
