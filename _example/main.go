package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hupe1980/altcache"
	"github.com/hupe1980/altcache/fetcher/rpc"
	"github.com/hupe1980/altcache/model"
)

func main() {
	ctx := context.Background()

	endpoint := os.Getenv("SOLANA_RPC_URL")
	if endpoint == "" {
		endpoint = "https://api.mainnet-beta.solana.com"
	}

	src, err := rpc.Dial(endpoint)
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	metrics := &altcache.BasicMetricsCollector{}

	store, err := altcache.LoadOrCreate(ctx, "tables.bin",
		altcache.WithFetcher(src),
		altcache.WithLogger(altcache.NewTextLogger(slog.LevelDebug)),
		altcache.WithMetricsCollector(metrics),
		altcache.WithCompression(altcache.CompressionZstd),
	)
	if err != nil {
		log.Fatal(err)
	}

	// A well-known mainnet lookup table.
	tableKey := model.MustParsePubkey("2immgwYNHBbyVQKVGCEkgWpi53bLwWNRMB5G2nbgYV17")

	if err := store.Update(ctx, []model.Pubkey{tableKey}, altcache.Append); err != nil {
		log.Fatal(err)
	}
	fmt.Println("cached tables:", store.Len())

	loaded, err := store.LoadAddresses([]model.TableLookup{{
		AccountKey:      tableKey,
		WritableIndexes: []uint8{0, 2},
		ReadonlyIndexes: []uint8{1},
	}})
	if err != nil {
		log.Fatal(err)
	}

	for _, addr := range loaded.Writable {
		fmt.Println("writable:", addr)
	}
	for _, addr := range loaded.Readonly {
		fmt.Println("readonly:", addr)
	}

	stats := metrics.GetStats()
	fmt.Printf("updates=%d fetched=%d saves=%d bytes=%d\n",
		stats.UpdateCount, stats.FetchedAccounts, stats.SaveCount, stats.SavedBytes)
}
