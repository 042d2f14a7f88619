// Package rpc implements the fetcher contract against a Solana JSON-RPC
// endpoint using the getMultipleAccounts method.
package rpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"github.com/hupe1980/altcache/fetcher"
	"github.com/hupe1980/altcache/model"
)

// BatchLimit is the getMultipleAccounts per-call account limit.
const BatchLimit = 100

// Options configures a Fetcher.
type Options struct {
	// Commitment is the confirmation level requested from the node.
	Commitment string

	// RateLimit caps outgoing batch calls per second. Zero disables
	// rate limiting.
	RateLimit rate.Limit

	// Burst is the rate limiter burst size. Defaults to 1 when a rate
	// limit is set.
	Burst int

	// Logger receives debug logs for each batch call. Nil disables
	// logging.
	Logger *slog.Logger
}

// DefaultOptions returns the default Fetcher options.
func DefaultOptions() Options {
	return Options{
		Commitment: "finalized",
	}
}

// Fetcher fetches raw account data over JSON-RPC. It implements
// fetcher.Fetcher.
type Fetcher struct {
	client  *ethrpc.Client
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ fetcher.Fetcher = (*Fetcher)(nil)

// Dial connects to the given JSON-RPC endpoint and returns a Fetcher.
func Dial(endpoint string, optFns ...func(o *Options)) (*Fetcher, error) {
	client, err := ethrpc.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", endpoint, err)
	}
	return NewFetcher(client, optFns...), nil
}

// NewFetcher wraps an existing RPC client. The caller retains ownership
// of the client unless Close is used.
func NewFetcher(client *ethrpc.Client, optFns ...func(o *Options)) *Fetcher {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	f := &Fetcher{
		client: client,
		opts:   opts,
		logger: opts.Logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return f
}

// Close closes the underlying RPC client.
func (f *Fetcher) Close() {
	f.client.Close()
}

// BatchLimit implements fetcher.Fetcher.
func (f *Fetcher) BatchLimit() int {
	return BatchLimit
}

// accountInfo mirrors the account fields of the getMultipleAccounts
// response we rely on. Data is an (encoded, encoding) pair.
type accountInfo struct {
	Data []string `json:"data"`
}

type multipleAccountsResult struct {
	Value []*accountInfo `json:"value"`
}

// Fetch implements fetcher.Fetcher. The node returns account values in
// request order with null for unknown accounts; nulls are dropped.
func (f *Fetcher) Fetch(ctx context.Context, keys []model.Pubkey) ([]fetcher.Account, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(keys) > BatchLimit {
		return nil, fmt.Errorf("rpc: batch of %d keys exceeds limit %d", len(keys), BatchLimit)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	encoded := make([]string, len(keys))
	for i, key := range keys {
		encoded[i] = key.String()
	}
	params := map[string]any{
		"encoding":   "base64",
		"commitment": f.opts.Commitment,
	}

	var result multipleAccountsResult
	if err := f.client.CallContext(ctx, &result, "getMultipleAccounts", encoded, params); err != nil {
		return nil, fmt.Errorf("rpc: getMultipleAccounts: %w", err)
	}
	if len(result.Value) != len(keys) {
		return nil, fmt.Errorf("rpc: got %d account values for %d keys", len(result.Value), len(keys))
	}

	accounts := make([]fetcher.Account, 0, len(keys))
	for i, info := range result.Value {
		if info == nil {
			continue
		}
		if len(info.Data) < 1 {
			return nil, fmt.Errorf("rpc: missing data field for account %s", keys[i])
		}
		if len(info.Data) > 1 && info.Data[1] != "base64" {
			return nil, fmt.Errorf("rpc: unexpected account data encoding %q", info.Data[1])
		}
		data, err := base64.StdEncoding.DecodeString(info.Data[0])
		if err != nil {
			return nil, fmt.Errorf("rpc: decode account data for %s: %w", keys[i], err)
		}
		accounts = append(accounts, fetcher.Account{Key: keys[i], Data: data})
	}

	if f.logger != nil {
		f.logger.Debug("fetched account batch",
			"requested", len(keys),
			"returned", len(accounts),
			"commitment", f.opts.Commitment,
		)
	}
	return accounts, nil
}
