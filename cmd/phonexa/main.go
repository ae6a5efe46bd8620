// Command phonexa scores pronunciation by aligning recognised phonemes with
// the IPA transcription of a sentence. It runs as an HTTP service (serve) or
// as a one-shot CLI (align, tokenize, distance, symbols).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/phonexa/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "phonexa: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "phonexa",
		Short:         "Phonetic pronunciation scoring",
		Long:          "phonexa segments a learner's recognised phoneme stream across the words of a reference sentence and scores each word by feature-weighted phonetic similarity.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newAlignCmd())
	root.AddCommand(newTokenizeCmd())
	root.AddCommand(newDistanceCmd())
	root.AddCommand(newSymbolsCmd())
	return root
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger returns a text logger on stderr whose level follows lvl.
func newLogger(lvl *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func levelVar(level config.LogLevel) *slog.LevelVar {
	lvl := new(slog.LevelVar)
	lvl.Set(level.SlogLevel())
	return lvl
}
