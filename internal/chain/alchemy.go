package chain

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// AlchemyClient fetches transfer history via the alchemy_getAssetTransfers
// extension. Both directions are queried so detectors see the full picture.
type AlchemyClient struct {
	rpc     *rpc.Client
	timeout time.Duration
}

// NewAlchemyClient dials the given Alchemy endpoint.
func NewAlchemyClient(ctx context.Context, url string, timeout time.Duration) (*AlchemyClient, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial alchemy: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AlchemyClient{rpc: c, timeout: timeout}, nil
}

// Close releases the underlying RPC connection.
func (c *AlchemyClient) Close() {
	c.rpc.Close()
}

// Ping verifies the endpoint answers a trivial call.
func (c *AlchemyClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var block string
	return c.rpc.CallContext(ctx, &block, "eth_blockNumber")
}

var _ Source = (*AlchemyClient)(nil)

type transfersParams struct {
	FromBlock    string   `json:"fromBlock"`
	ToBlock      string   `json:"toBlock"`
	FromAddress  string   `json:"fromAddress,omitempty"`
	ToAddress    string   `json:"toAddress,omitempty"`
	Category     []string `json:"category"`
	WithMetadata bool     `json:"withMetadata"`
	Order        string   `json:"order"`
	MaxCount     string   `json:"maxCount"`
}

type transfersResult struct {
	Transfers []rawTransfer `json:"transfers"`
}

type rawTransfer struct {
	Hash     string   `json:"hash"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Value    *float64 `json:"value"`
	Asset    string   `json:"asset"`
	Category string   `json:"category"`
	BlockNum string   `json:"blockNum"`
	Metadata struct {
		BlockTimestamp string `json:"blockTimestamp"`
	} `json:"metadata"`
}

// Transactions fetches outgoing and incoming transfers for the address,
// deduplicates by hash, and returns them sorted by block descending.
func (c *AlchemyClient) Transactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	out, err := c.fetch(ctx, transfersParams{FromAddress: address}, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outgoing transfers: %w", err)
	}
	in, err := c.fetch(ctx, transfersParams{ToAddress: address}, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch incoming transfers: %w", err)
	}

	seen := make(map[string]struct{}, len(out)+len(in))
	merged := make([]Transaction, 0, len(out)+len(in))
	for _, raw := range append(out, in...) {
		if _, dup := seen[raw.Hash]; dup {
			continue
		}
		seen[raw.Hash] = struct{}{}
		merged = append(merged, normalize(raw))
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Block > merged[j].Block
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (c *AlchemyClient) fetch(ctx context.Context, params transfersParams, limit int) ([]rawTransfer, error) {
	params.FromBlock = "0x0"
	params.ToBlock = "latest"
	params.Category = []string{"external", "internal", "erc20", "erc721", "erc1155"}
	params.WithMetadata = true
	params.Order = "desc"
	params.MaxCount = "0x" + strconv.FormatInt(int64(limit), 16)

	var result transfersResult
	if err := c.rpc.CallContext(ctx, &result, "alchemy_getAssetTransfers", params); err != nil {
		return nil, err
	}
	return result.Transfers, nil
}

func normalize(raw rawTransfer) Transaction {
	tx := Transaction{
		Hash:     raw.Hash,
		From:     strings.ToLower(raw.From),
		To:       strings.ToLower(raw.To),
		Asset:    raw.Asset,
		Category: mapCategory(raw.Category),
	}
	if raw.Value != nil {
		tx.Value = *raw.Value
	}
	if n, err := strconv.ParseUint(strings.TrimPrefix(raw.BlockNum, "0x"), 16, 64); err == nil {
		tx.Block = n
	}
	if ts, err := time.Parse(time.RFC3339, raw.Metadata.BlockTimestamp); err == nil {
		tx.Timestamp = ts
	}
	return tx
}

func mapCategory(s string) Category {
	switch s {
	case "erc20":
		return CategoryFungible
	case "erc721", "erc1155":
		return CategoryNFT
	default:
		return CategoryNative
	}
}
