// Command statemachine parses a state-machine definition file and runs it
// against an in-memory variable server until SIGINT/SIGTERM, per spec.md
// section 6.
//
// Grounded on original_source/src/statemachine.c's main/ProcessOptions/
// SetupTerminationHandler/TerminationHandler shape, re-expressed with the
// standard library's flag package (per SPEC_FULL.md's ambient-stack
// section: no third-party CLI-flag library appears in the retrieved
// example pack) and signal.Notify in place of sigaction.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/vartrigger/statemachine/debug"
	"github.com/vartrigger/statemachine/engine"
	"github.com/vartrigger/statemachine/lang"
	"github.com/vartrigger/statemachine/varserver"
)

// current is the single, carefully initialized process-wide slot spec.md
// section 9's design note calls for: populated once at startup, read by
// the termination handler, cleared once at teardown. Using
// atomic.Pointer keeps the termination handler lock-free, since it runs
// from a signal-notified goroutine concurrently with the event loop.
var current atomic.Pointer[engine.StateMachine]

func main() {
	verbose := flag.Bool("v", false, "enable verbose event/transition logging")
	dot := flag.Bool("d", false, "print the compiled machine as Graphviz DOT and exit")
	flag.Usage = usage
	flag.Parse()

	filename := ""
	if flag.NArg() > 0 {
		filename = flag.Arg(0)
	}
	if filename == "" {
		fmt.Fprintln(os.Stderr, "statemachine: no definition file given")
		return
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "statemachine: %v\n", err)
		os.Exit(1)
	}

	vs := varserver.NewMemoryServer()
	sm, perr := lang.Parse(string(src), vs)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr)
	}
	if sm == nil {
		os.Exit(1)
	}
	sm.Verbose = *verbose

	if *dot {
		fmt.Print(debug.Generate(sm, debug.DefaultOptions()))
		return
	}

	logging := engine.NewLoggingObserver(*verbose)
	sm.AddObserver(logging)

	if err := sm.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "statemachine: %v\n", err)
		os.Exit(1)
	}
	current.Store(sm)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	terminationHandler()
	os.Exit(1) // abnormal termination, matching original_source's exit code
}

// terminationHandler closes the variable-server handle and stops the
// machine, mirroring original_source/src/statemachine.c's
// TerminationHandler. Reads the process-wide slot exactly once.
func terminationHandler() {
	sm := current.Swap(nil)
	if sm == nil {
		return
	}
	sm.Stop()
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-v] [-d] [-h] [<filename>]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, " -v : verbose output")
	fmt.Fprintln(os.Stderr, " -d : print the compiled machine as Graphviz DOT and exit")
	fmt.Fprintln(os.Stderr, " -h : display this help")
}
