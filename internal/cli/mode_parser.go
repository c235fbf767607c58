package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeDispatch = "dispatch"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeDispatch, "dispatch-service", "d":
		return ModeDispatch, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `dispatch --interval=300`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=dispatch or the dispatch subcommand")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./ride-pool dispatch [flags]

Modes:
  dispatch                     Batch dispatcher: groups pending ride and
                               delivery requests into shared trips

Flags (override config file and environment):
  --interval N                 Seconds between dispatch rounds
  --min-cluster-size K         Minimum requests per density cluster
  --eps E                      DBSCAN neighborhood radius (scaled space)
  --min-samples M              DBSCAN core-point threshold

Examples:
  ./ride-pool dispatch
  ./ride-pool dispatch --interval=300 --min-cluster-size=4
  ./ride-pool --mode=dispatch --eps=0.15 --min-samples=3`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./ride-pool --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
