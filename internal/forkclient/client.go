// Package forkclient is the typed RPC client the node uses to read a
// remote zkSync Era endpoint at a pinned fork point. It wraps
// github.com/ethereum/go-ethereum/rpc's reflection-free JSON-RPC
// client, the same transport the teacher uses for its own ethclient,
// and layers the node's two-tier cache.Cache transparently underneath
// every call.
package forkclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"

	"github.com/zksync-go/innode/internal/cache"
)

// Client is a cached, typed fork RPC client pinned to one endpoint.
type Client struct {
	rpcClient   *rpc.Client
	endpointURL string
	cache       *cache.Cache
	pinnedBatch uint64
}

// Dial connects to a remote zkSync Era JSON-RPC endpoint.
func Dial(ctx context.Context, url string, c *cache.Cache, pinnedBatch uint64) (*Client, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("forkclient: dial %s: %w", url, err)
	}
	return New(rc, url, c, pinnedBatch), nil
}

// New wraps an already-dialed rpc.Client, primarily for tests that
// substitute an httptest server.
func New(rc *rpc.Client, endpointURL string, c *cache.Cache, pinnedBatch uint64) *Client {
	return &Client{rpcClient: rc, endpointURL: endpointURL, cache: c, pinnedBatch: pinnedBatch}
}

// EndpointID identifies this client's remote for cache namespacing and
// Reset.
func (c *Client) EndpointID() string { return c.endpointURL }

// Reset clears this endpoint's cached entries.
func (c *Client) Reset() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Reset(c.endpointURL)
}

// call performs a cached JSON-RPC call. Cache hits never reach the
// network; misses populate the cache with the raw response bytes so
// later calls with identical parameters decode from the same bytes
// without re-fetching.
func (c *Client) call(ctx context.Context, out any, method string, params ...any) error {
	fp := cache.Fingerprint{EndpointID: c.endpointURL, PinnedBatch: c.pinnedBatch, Method: method, Params: params}
	if c.cache != nil {
		if raw, ok := c.cache.Get(fp); ok {
			return json.Unmarshal(raw, out)
		}
	}

	var raw json.RawMessage
	if err := c.rpcClient.CallContext(ctx, &raw, method, params...); err != nil {
		return fmt.Errorf("forkclient: %s: %w", method, err)
	}
	if c.cache != nil {
		_ = c.cache.Set(fp, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// BlockHeader is the subset of a remote block this node needs to
// splice into its local chain store.
type BlockHeader struct {
	Number            uint64        `json:"number"`
	Hash              common.Hash   `json:"hash"`
	ParentHash        common.Hash   `json:"parentHash"`
	Timestamp         uint64        `json:"timestamp"`
	BaseFeePerGas     uint64        `json:"baseFeePerGas"`
	GasLimit          uint64        `json:"gasLimit"`
	GasUsed           uint64        `json:"gasUsed"`
	TransactionHashes []common.Hash `json:"transactions"`
	L1BatchNumber     uint64        `json:"l1BatchNumber"`
}

// GetBlockByNumber fetches a block header and transaction hash list by
// number.
func (c *Client) GetBlockByNumber(ctx context.Context, number uint64) (*BlockHeader, error) {
	var raw rawBlock
	if err := c.call(ctx, &raw, "eth_getBlockByNumber", hexUint(number), false); err != nil {
		return nil, err
	}
	return raw.header(), nil
}

// GetBlockByHash fetches a block header by hash.
func (c *Client) GetBlockByHash(ctx context.Context, hash common.Hash) (*BlockHeader, error) {
	var raw rawBlock
	if err := c.call(ctx, &raw, "eth_getBlockByHash", hash, false); err != nil {
		return nil, err
	}
	return raw.header(), nil
}

type rawBlock struct {
	Number        string        `json:"number"`
	Hash          common.Hash   `json:"hash"`
	ParentHash    common.Hash   `json:"parentHash"`
	Timestamp     string        `json:"timestamp"`
	BaseFeePerGas string        `json:"baseFeePerGas"`
	GasLimit      string        `json:"gasLimit"`
	GasUsed       string        `json:"gasUsed"`
	Transactions  []common.Hash `json:"transactions"`
	L1BatchNumber string        `json:"l1BatchNumber"`
}

func (r rawBlock) header() *BlockHeader {
	return &BlockHeader{
		Number:            hexToUint(r.Number),
		Hash:              r.Hash,
		ParentHash:        r.ParentHash,
		Timestamp:         hexToUint(r.Timestamp),
		BaseFeePerGas:     hexToUint(r.BaseFeePerGas),
		GasLimit:          hexToUint(r.GasLimit),
		GasUsed:           hexToUint(r.GasUsed),
		TransactionHashes: r.Transactions,
		L1BatchNumber:     hexToUint(r.L1BatchNumber),
	}
}

// GetStorageAt fetches one storage slot's value at the pinned point.
func (c *Client) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	var out common.Hash
	if err := c.call(ctx, &out, "eth_getStorageAt", addr, slot, "latest"); err != nil {
		return common.Hash{}, err
	}
	return out, nil
}

// GetBytecode fetches contract bytecode by address (the remote stores
// code by address; this node re-indexes it by hash locally).
func (c *Client) GetBytecode(ctx context.Context, addr common.Address) ([]byte, error) {
	var out hexBytes
	if err := c.call(ctx, &out, "eth_getCode", addr, "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransactionCount fetches an account's nonce.
func (c *Client) GetTransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	var out string
	if err := c.call(ctx, &out, "eth_getTransactionCount", addr, "latest"); err != nil {
		return 0, err
	}
	return hexToUint(out), nil
}

// GetBalance fetches an account's balance in wei.
func (c *Client) GetBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	var out string
	if err := c.call(ctx, &out, "eth_getBalance", addr, "latest"); err != nil {
		return nil, err
	}
	v, err := uint256.FromHex(out)
	if err != nil {
		return nil, fmt.Errorf("forkclient: decode balance %q: %w", out, err)
	}
	return v, nil
}

// LatestBlockNumber fetches the remote's current block number, used
// to resolve a fork pin of 0 ("latest available") to a concrete
// height at startup.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var out string
	if err := c.call(ctx, &out, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return hexToUint(out), nil
}

// GetTransactionByHash fetches a transaction envelope by hash.
func (c *Client) GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, &out, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmedToken is one entry of zks_getConfirmedTokens.
type ConfirmedToken struct {
	L1Address common.Address `json:"l1Address"`
	L2Address common.Address `json:"l2Address"`
	Name      string         `json:"name"`
	Symbol    string         `json:"symbol"`
	Decimals  uint8          `json:"decimals"`
}

// GetConfirmedTokens fetches a page of confirmed bridged tokens.
func (c *Client) GetConfirmedTokens(ctx context.Context, offset, limit uint32) ([]ConfirmedToken, error) {
	var out []ConfirmedToken
	if err := c.call(ctx, &out, "zks_getConfirmedTokens", offset, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBlockDetails fetches zkSync-specific per-block metadata.
func (c *Client) GetBlockDetails(ctx context.Context, number uint64) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, &out, "zks_getBlockDetails", number); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRawBlockTransactions fetches the raw transactions of a remote
// block.
func (c *Client) GetRawBlockTransactions(ctx context.Context, number uint64) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, &out, "zks_getRawBlockTransactions", number); err != nil {
		return nil, err
	}
	return out, nil
}

// hexUint formats a block number per the Ethereum JSON-RPC quantity
// encoding.
func hexUint(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

func hexToUint(s string) uint64 {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseUint(s, 16, 64)
	return n
}

// hexBytes decodes a 0x-prefixed hex JSON string into bytes.
type hexBytes []byte

func (h *hexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}
