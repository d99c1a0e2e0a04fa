// qrsdp_log_info inspects a .qrsdp file: prints the header fields, the
// chunk index summary, and a sample of decoded records with
// human-readable decimal prices.
//
//	qrsdp_log_info <file.qrsdp> [num_samples]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"qrsdp/internal/qrsdplog"
	"qrsdp/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: qrsdp_log_info <file.qrsdp> [num_samples]")
		os.Exit(2)
	}
	path := os.Args[1]
	numSamples := 10
	if len(os.Args) >= 3 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid num_samples %q: %v\n", os.Args[2], err)
			os.Exit(2)
		}
		numSamples = n
	}

	reader, err := qrsdplog.OpenLogReader(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	h := reader.Header
	fmt.Printf("file: %s\n", path)
	fmt.Printf("seed: %d\n", h.Seed)
	fmt.Printf("p0_ticks: %d (%s)\n", h.P0Ticks, formatPrice(h.P0Ticks, h.TickSize))
	fmt.Printf("tick_size: %d\n", h.TickSize)
	fmt.Printf("session_seconds: %d\n", h.SessionSeconds)
	fmt.Printf("levels_per_side: %d\n", h.LevelsPerSide)
	fmt.Printf("initial_spread_ticks: %d\n", h.InitialSpread)
	fmt.Printf("initial_depth: %d\n", h.InitialDepth)
	fmt.Printf("chunk_capacity: %d\n", h.ChunkCapacity)
	fmt.Printf("has_index: %v\n", reader.HasIndex())
	fmt.Printf("chunk_count: %d\n", reader.ChunkCount())

	records, err := reader.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read records: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("total_records: %d\n", len(records))

	if numSamples > len(records) {
		numSamples = len(records)
	}
	if numSamples > 0 {
		fmt.Printf("\nfirst %d records:\n", numSamples)
		for _, r := range records[:numSamples] {
			printRecord(r, h.TickSize)
		}
	}
}

func printRecord(r types.DiskEventRecord, tickSize uint32) {
	fmt.Printf("  ts_ns=%-14d type=%-12s side=%-4s price=%-10s qty=%-6d order_id=%d\n",
		r.TsNs, r.Type, r.Side, formatPrice(r.PriceTicks, tickSize), r.Qty, r.OrderID)
}

// formatPrice renders a tick count as a decimal price using
// shopspring/decimal, which carries exact scaled arithmetic rather than
// float rounding (spec §6.2's tick-size scaling convention).
func formatPrice(priceTicks int32, tickSize uint32) string {
	ticks := decimal.NewFromInt32(priceTicks)
	scale := decimal.NewFromInt(int64(tickSize))
	return ticks.Mul(scale).Div(decimal.NewFromInt(10000)).StringFixed(4)
}
