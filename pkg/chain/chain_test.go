package chain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactum-labs/pactum-gateway/pkg/config"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0xAbC0000000000000000000000000000000000123")
	require.NoError(t, err)
	assert.Equal(t, Address("0xabc0000000000000000000000000000000000123"), addr)
	assert.False(t, addr.IsZero())

	_, err = ParseAddress("0x1234")
	assert.Error(t, err)
	_, err = ParseAddress("0xzz00000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestAddressTopicRoundTrip(t *testing.T) {
	addr, err := ParseAddress("0xabc0000000000000000000000000000000000123")
	require.NoError(t, err)

	topic := addr.Topic()
	back, err := topic.Address()
	require.NoError(t, err)
	assert.Equal(t, addr, back)
}

func TestKeccak256KnownVectors(t *testing.T) {
	assert.Equal(t,
		Hash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		Keccak256Hash())
	assert.Equal(t,
		Hash("0x1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"),
		Keccak256Hash([]byte("hello")))
}

func TestOrderKeyIsDeterministic(t *testing.T) {
	a := OrderKey("order-123")
	b := OrderKey("order-123")
	c := OrderKey("order-124")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a.String(), 66)
}

func TestUint64WordRoundTrip(t *testing.T) {
	word := EncodeUint64Word(1_500_000)
	require.Len(t, word, 32)

	v, err := DecodeUint64Word(word)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), v)

	overflow := make([]byte, 32)
	overflow[0] = 1
	_, err = DecodeUint64Word(overflow)
	assert.Error(t, err)

	_, err = DecodeUint64Word([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestRPCClientReceiptAndLogs(t *testing.T) {
	txHash := "0x1100000000000000000000000000000000000000000000000000000000000022"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     uint64 `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "eth_blockNumber":
			result = "0x2a"
		case "eth_getTransactionReceipt":
			result = map[string]any{
				"transactionHash":   txHash,
				"blockNumber":       "0x10",
				"status":            "0x1",
				"cumulativeGasUsed": "0x5208",
				"gasUsed":           "0x5208",
				"logsBloom":         "0x" + strings.Repeat("00", 256),
				"logs": []map[string]any{{
					"address":          "0xabc0000000000000000000000000000000000123",
					"topics":           []string{Keccak256Hash([]byte("hello")).String()},
					"data":             "0x" + "0000000000000000000000000000000000000000000000000000000000000001",
					"blockNumber":      "0x10",
					"transactionHash":  txHash,
					"transactionIndex": "0x0",
					"logIndex":         "0x0",
				}},
			}
		case "eth_getLogs":
			result = []any{}
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	logg := logger.New(logger.Options{ServiceName: "chain-test"})

	client, err := NewRPCClient(config.ChainConfig{RPCURL: server.URL, RequestTimeout: time.Second}, logg)
	require.NoError(t, err)

	ctx := t.Context()

	head, err := client.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), head)

	parsedTx, err := ParseHash(txHash)
	require.NoError(t, err)
	receipt, err := client.TransactionReceipt(ctx, parsedTx)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(16), receipt.BlockNumber)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, Keccak256Hash([]byte("hello")), receipt.Logs[0].Topic0())

	logs, err := client.FilterLogs(ctx, FilterQuery{FromBlock: 1, ToBlock: 16})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRPCClientReceiptNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID uint64 `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": nil}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	logg := logger.New(logger.Options{ServiceName: "chain-test"})

	client, err := NewRPCClient(config.ChainConfig{RPCURL: server.URL}, logg)
	require.NoError(t, err)

	_, err = client.TransactionReceipt(t.Context(), OrderKey("missing"))
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}
