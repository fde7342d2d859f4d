// SPDX-License-Identifier: Apache-2.0
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	cullerrors "cull/internal/errors"
	"cull/internal/ir"
	"cull/internal/mem2reg"
	"cull/internal/opt"
	"cull/internal/parser"
	"cull/internal/stats"
	"cull/internal/verifier"
)

var (
	statFunctions    = stats.New("Functions", "functions processed")
	statInstructions = stats.New("Instructions", "instructions in the final module")
	statLoads        = stats.New("Loads", "load instructions in the final module")
	statStores       = stats.New("Stores", "store instructions in the final module")
)

func main() {
	noCSE := flag.Bool("no-cse", false, "skip the optimization pipeline entirely")
	noVerify := flag.Bool("no", false, "skip module verification")
	promote := flag.Bool("mem2reg", false, "promote eligible stack slots before optimizing")
	verbose := flag.Bool("verbose", false, "print the statistics report after optimizing")
	verbosity := flag.Int("v", 0, "log verbosity (0=errors only)")
	debug := flag.Bool("debug", false, "dump the in-memory module after loading")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	inPath, outPath := flag.Arg(0), flag.Arg(1)

	commonlog.Configure(*verbosity, nil)

	startTime := time.Now()

	source, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	m, err := parser.ParseSource(inPath, string(source))
	if err != nil {
		var loadErr *cullerrors.LoadError
		if errors.As(err, &loadErr) {
			reporter := cullerrors.NewReporter(inPath, string(source))
			fmt.Fprint(os.Stderr, reporter.FormatLoadError(loadErr))
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		color.Red("Loading failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	if *debug {
		spew.Fdump(os.Stderr, m)
	}

	optimize(m, *promote, *noCSE)

	if !*noVerify {
		if verrs := verifier.Verify(m); len(verrs) > 0 {
			reportVerification(verrs)
			color.Red("Verification failed after %s", formatDuration(time.Since(startTime)))
			os.Exit(1)
		}
	}

	countModule(m)

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output: %v\n", err)
		os.Exit(1)
	}
	if err := ir.WriteModule(out, m); err != nil {
		out.Close()
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		os.Exit(1)
	}

	if err := stats.ExportCSV(outPath + ".stats"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write statistics: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		stats.Print(os.Stderr)
	}

	color.Green("Successfully processed %s in %s", inPath, formatDuration(time.Since(startTime)))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: cull [flags] <input.ir> <output.ir>\n\n")
	flag.PrintDefaults()
}

// optimize applies the requested transformations. Promotion and the main
// pipeline are independently selectable.
func optimize(m *ir.Module, promote, noCSE bool) {
	if promote {
		mem2reg.Run(m)
	}
	if !noCSE {
		opt.NewPipeline().Run(m)
	}
}

// countModule records the shape of the module as it will be written out.
func countModule(m *ir.Module) {
	for _, fn := range m.Funcs {
		if fn.IsDecl() {
			continue
		}
		statFunctions.Inc()
		for _, bb := range fn.Blocks {
			for _, inst := range bb.Insts {
				statInstructions.Inc()
				switch inst.Op {
				case ir.Load:
					statLoads.Inc()
				case ir.Store:
					statStores.Inc()
				}
			}
		}
	}
}

func reportVerification(verrs []*cullerrors.VerificationError) {
	red := color.New(color.FgRed).SprintFunc()
	for _, verr := range verrs {
		fmt.Fprintf(os.Stderr, "%s: function @%s is malformed\n", red("error"), verr.Function)
		for _, p := range verr.Problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
