// Command simulate drives a matching engine with synthetic order flow,
// the CLI boundary collaborator around the core engine: it parses
// options, generates orders with ordergen, fans submissions across a
// worker pool, optionally logs trades to CSV, optionally tracks
// submission latency, and prints a final report.
package main

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	match "github.com/flux-markets/matching-engine"
	"github.com/flux-markets/matching-engine/csvsink"
	"github.com/flux-markets/matching-engine/histogram"
	"github.com/flux-markets/matching-engine/ordergen"
	"github.com/flux-markets/matching-engine/workqueue"
)

// completionTally accumulates per-batch totals as worker goroutines finish,
// guarded only by atomics since every batch closure reports concurrently.
type completionTally struct {
	batches atomic.Int64
	orders  atomic.Int64
	nanos   atomic.Int64
}

func (t *completionTally) report(orders int, duration time.Duration) {
	t.batches.Add(1)
	t.orders.Add(int64(orders))
	t.nanos.Add(int64(duration))
}

type config struct {
	numOrders      int
	numThreads     int
	symbol         string
	enableCSV      bool
	enableHistogram bool
	aggressive     bool
	benchmark      bool
}

func defaultConfig() config {
	return config{
		numOrders:       100000,
		numThreads:      4,
		symbol:          "AAPL",
		enableCSV:       true,
		enableHistogram: true,
	}
}

func printUsage(w *os.File, program string) {
	fmt.Fprintf(w, "Usage: %s [OPTIONS]\n", program)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --benchmark          Run a fixed-size benchmark")
	fmt.Fprintln(w, "  --aggressive         Generate orders that deliberately cross the spread")
	fmt.Fprintln(w, "  --orders N           Number of orders (default: 100000)")
	fmt.Fprintln(w, "  --threads N          Number of worker threads (default: 4)")
	fmt.Fprintln(w, "  --symbol SYMBOL      Trading symbol (default: AAPL)")
	fmt.Fprintln(w, "  --no-csv             Disable CSV trade logging")
	fmt.Fprintln(w, "  --no-histogram       Disable latency histogram collection")
	fmt.Fprintln(w, "  --help               Show this help message")
}

// parseArgs returns the parsed config, plus an exit code and true if
// parsing should stop the program (--help exits 0, an unknown option or
// a missing or malformed value exits 2).
func parseArgs(args []string, program string) (config, int, bool) {
	cfg := defaultConfig()

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--help":
			printUsage(os.Stdout, program)
			return cfg, 0, true
		case "--benchmark":
			cfg.benchmark = true
		case "--aggressive":
			cfg.aggressive = true
		case "--no-csv":
			cfg.enableCSV = false
		case "--no-histogram":
			cfg.enableHistogram = false
		case "--orders":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "missing value for --orders")
				return cfg, 2, true
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				fmt.Fprintf(os.Stderr, "invalid value for --orders: %s\n", args[i])
				return cfg, 2, true
			}
			cfg.numOrders = n
		case "--threads":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "missing value for --threads")
				return cfg, 2, true
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				fmt.Fprintf(os.Stderr, "invalid value for --threads: %s\n", args[i])
				return cfg, 2, true
			}
			cfg.numThreads = n
		case "--symbol":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "missing value for --symbol")
				return cfg, 2, true
			}
			cfg.symbol = args[i]
		default:
			fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
			printUsage(os.Stderr, program)
			return cfg, 2, true
		}
	}

	return cfg, 0, false
}

func main() {
	cfg, code, done := parseArgs(os.Args[1:], os.Args[0])
	if done {
		os.Exit(code)
	}

	if cfg.benchmark {
		cfg.numOrders = 50000
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nSimulation completed successfully!")
	os.Exit(0)
}

func run(cfg config) error {
	fmt.Println("==========================================")
	fmt.Println("  Order Book Matching Simulator")
	fmt.Println("==========================================")
	fmt.Printf("Orders: %d\n", cfg.numOrders)
	fmt.Printf("Threads: %d\n", cfg.numThreads)
	fmt.Printf("Symbol: %s\n", cfg.symbol)

	engine := match.NewMatchingEngine(cfg.symbol)

	var csvFile string
	if cfg.aggressive {
		csvFile = "aggressive_trades.csv"
	} else if cfg.benchmark {
		csvFile = "benchmark_trades.csv"
	} else {
		csvFile = "simulation_trades.csv"
	}

	if cfg.enableCSV {
		sink, err := csvsink.New(csvFile)
		if err != nil {
			return fmt.Errorf("open csv sink: %w", err)
		}
		defer sink.Close()
		engine.SetTradeSink(sink)
	}

	var monitor *histogram.Monitor
	if cfg.enableHistogram {
		monitor = histogram.NewMonitor()
	}

	generator := ordergen.New(ordergen.DefaultConfig())

	var orders []*match.Order
	if cfg.aggressive {
		fmt.Println("Generating aggressive orders for maximum matching...")
		orders = generator.AggressiveBatch(cfg.numOrders)
	} else {
		fmt.Println("Generating orders...")
		orders = generator.Batch(cfg.numOrders)
	}

	pool := workqueue.NewPool(cfg.numThreads, 1024)

	var tally completionTally
	var wg sync.WaitGroup

	fmt.Println("Processing orders with worker pool...")
	start := time.Now()

	const batchSize = 100
	for i := 0; i < len(orders); i += batchSize {
		end := i + batchSize
		if end > len(orders) {
			end = len(orders)
		}
		batch := orders[i:end]

		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			batchStart := time.Now()
			for _, o := range batch {
				if monitor != nil {
					stop := monitor.Start("order_submission")
					_ = engine.Submit(o)
					stop()
				} else {
					_ = engine.Submit(o)
				}
			}
			tally.report(len(batch), time.Since(batchStart))
		})
	}
	pool.Stop()
	wg.Wait()

	elapsed := time.Since(start)
	submitted, completed := pool.Stats()

	fmt.Println("\nSimulation Results:")
	fmt.Printf("Orders Processed: %d\n", len(orders))
	fmt.Printf("Submitted Batches: %d, Completed Batches: %d\n", submitted, completed)
	fmt.Printf("Batch Completions: %d batches, %d orders, %v total batch time\n",
		tally.batches.Load(), tally.orders.Load(), time.Duration(tally.nanos.Load()))
	fmt.Printf("Total Time: %d microseconds\n", elapsed.Microseconds())
	if elapsed > 0 {
		fmt.Printf("Throughput: %.2f orders/second\n", float64(len(orders))/elapsed.Seconds())
	}

	if monitor != nil {
		monitor.PrintStats(os.Stdout, "order_submission")
	}

	fmt.Println(engine.MarketStats())

	if cfg.aggressive {
		fmt.Println("\nFinal Order Book State:")
		fmt.Println(engine.OrderBookSnapshot(10))
	}

	return nil
}
