package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	dispatchservice "ride-pool/cmd/dispatch_service"
	"ride-pool/internal/cli"
	"syscall"
	"time"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the service specified by the mode flag
	switch mode {

	case cli.ModeDispatch:
		fs := flag.NewFlagSet(cli.ModeDispatch, flag.ContinueOnError)
		interval := fs.Int("interval", 0, "Seconds between dispatch rounds (0 keeps the configured value)")
		minClusterSize := fs.Int("min-cluster-size", 0, "Minimum requests per density cluster (0 keeps the configured value)")
		eps := fs.Float64("eps", 0, "DBSCAN neighborhood radius in scaled feature space (0 keeps the configured value)")
		minSamples := fs.Int("min-samples", 0, "DBSCAN core-point threshold (0 keeps the configured value)")
		cli.AttachUsage(fs, cli.ModeDispatch)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *interval < 0 {
			fmt.Fprintln(os.Stderr, "Error: --interval cannot be negative")
			fs.Usage()
			os.Exit(2)
		}
		if *minClusterSize < 0 {
			fmt.Fprintln(os.Stderr, "Error: --min-cluster-size cannot be negative")
			fs.Usage()
			os.Exit(2)
		}
		if *eps < 0 {
			fmt.Fprintln(os.Stderr, "Error: --eps cannot be negative")
			fs.Usage()
			os.Exit(2)
		}
		if *minSamples < 0 {
			fmt.Fprintln(os.Stderr, "Error: --min-samples cannot be negative")
			fs.Usage()
			os.Exit(2)
		}

		overrides := dispatchservice.Overrides{
			IntervalSeconds: *interval,
			MinClusterSize:  *minClusterSize,
			DBSCANEps:       *eps,
			DBSCANMinSample: *minSamples,
		}
		if err := dispatchservice.Run(ctx, overrides); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
