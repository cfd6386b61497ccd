// Command button-log is a tool for viewing and analyzing wake-cycle trace
// files written by button-device and button-sim with the -trace flag.
//
// Usage:
//
//	button-log <command> [flags] <file.blog>
//
// Commands:
//
//	view     View trace in human-readable format
//	export   Export trace to JSON or CSV format
//	filter   Filter trace and write to new file
//	stats    Show per-cycle statistics
//
// Examples:
//
//	# View all events
//	button-log view button.blog
//
//	# View only delivery attempts of one cycle
//	button-log view --category attempt --cycle-id 1f0c2a9e button.blog
//
//	# Export to CSV
//	button-log export --format csv -o cycles.csv button.blog
//
//	# Keep one wake cycle
//	button-log filter --cycle-id 1f0c2a9e -o cycle.blog button.blog
//
//	# Show statistics
//	button-log stats button.blog
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/TheLastGimbus/ESP-PizzaButton/cmd/button-log/commands"
)

type command struct {
	summary string
	run     func(fs *flag.FlagSet, args []string) error
}

var commandTable = map[string]command{
	"view":   {"View trace in human-readable format", runView},
	"export": {"Export trace to JSON or CSV format", runExport},
	"filter": {"Filter trace and write to new file", runFilter},
	"stats":  {"Show per-cycle statistics", runStats},
}

func printUsage() {
	fmt.Fprint(os.Stderr, "button-log - Pizza Button Trace Analyzer\n\n")
	fmt.Fprint(os.Stderr, "Usage:\n  button-log <command> [flags] <file.blog>\n\nCommands:\n")
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commandTable[name].summary)
	}
	fmt.Fprint(os.Stderr, "\nUse \"button-log <command> -help\" for more information about a command.\n")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	}

	cmd, ok := commandTable[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}
	if err := cmd.run(newFlagSet(name, cmd.summary), os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set whose usage names the command and its
// summary.
func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "button-log %s - %s\n\nUsage:\n  button-log %s [flags] <file.blog>\n\nFlags:\n",
			name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// parseTrace parses args and returns the single positional trace path.
func parseTrace(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("exactly one trace file required, got %d", fs.NArg())
	}
	return fs.Arg(0), nil
}

// selectionFlags registers the event selection flags shared by view and
// filter.
func selectionFlags(fs *flag.FlagSet, opts *commands.FilterOptions) {
	fs.StringVar(&opts.CycleID, "cycle-id", "", "Filter by wake-cycle ID")
	fs.StringVar(&opts.DeviceID, "device-id", "", "Filter by device hardware address")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Component, "component", "", "Filter by component (controller, power, button, session, delivery, reset, credentials)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (state, input, attempt, error)")
	fs.StringVar(&opts.Mode, "mode", "", "Filter by mode (normal, provisioning)")
}

func runView(fs *flag.FlagSet, args []string) error {
	var opts commands.FilterOptions
	selectionFlags(fs, &opts)

	path, err := parseTrace(fs, args)
	if err != nil {
		return err
	}
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(fs *flag.FlagSet, args []string) error {
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path, err := parseTrace(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output)
}

func runFilter(fs *flag.FlagSet, args []string) error {
	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	selectionFlags(fs, &opts)

	path, err := parseTrace(fs, args)
	if err != nil {
		return err
	}
	if opts.Output == "" {
		fs.Usage()
		return fmt.Errorf("output file (-o) required")
	}
	return commands.RunFilter(path, opts, os.Stdout)
}

func runStats(fs *flag.FlagSet, args []string) error {
	path, err := parseTrace(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, os.Stdout)
}
