// Command trayhopctl sends one navigation action to the running trayhop
// instance, e.g. from a window-manager keybinding or a script.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"trayhop/internal/hotkeys"
	"trayhop/internal/ipc"
)

var sendFn = ipc.Send

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trayhopctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("endpoint", "", "IPC endpoint (default: per-user socket or pipe)")
	source := fs.String("source", "trayhopctl", "caller name recorded in the app log")
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	action := ipc.StatusAction
	switch fs.NArg() {
	case 0:
	case 1:
		action = strings.TrimSpace(fs.Arg(0))
	default:
		fmt.Fprintf(stderr, "expected one action, got %d\n", fs.NArg())
		printUsage(stderr, fs)
		return 2
	}
	if action != ipc.StatusAction {
		if _, err := hotkeys.ParseAction(action); err != nil {
			fmt.Fprintln(stderr, err)
			printUsage(stderr, fs)
			return 2
		}
	}

	target := *endpoint
	if target == "" {
		target = ipc.DefaultEndpoint()
	}
	resp, err := sendFn(target, ipc.Request{Action: action, Source: *source})
	if err != nil {
		if ipc.IsConnectionError(err) {
			fmt.Fprintf(stderr, "trayhop is not running (%s)\n", target)
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	if !resp.OK {
		fmt.Fprintln(stderr, resp.Error)
		return 1
	}
	fmt.Fprintln(stdout, formatResponse(resp))
	return 0
}

func formatResponse(resp ipc.Response) string {
	parts := []string{"page=" + resp.Page}
	if resp.Visible != nil {
		parts = append(parts, fmt.Sprintf("visible=%t", *resp.Visible))
	}
	parts = append(parts, fmt.Sprintf("changed=%t", resp.Changed))
	return strings.Join(parts, " ")
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	// Usage output is best-effort.
	_, _ = fmt.Fprintln(w, "Usage: trayhopctl [flags] [action]")
	_, _ = fmt.Fprintln(w, "Actions:")
	_, _ = fmt.Fprintf(w, "  %s (default)\n", ipc.StatusAction)
	for _, action := range hotkeys.AllActions() {
		_, _ = fmt.Fprintf(w, "  %s\n", action)
	}
	_, _ = fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
