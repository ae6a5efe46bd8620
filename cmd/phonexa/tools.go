package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/phonexa/internal/analysis"
	"github.com/MrWong99/phonexa/internal/app"
	"github.com/MrWong99/phonexa/internal/config"
	"github.com/MrWong99/phonexa/pkg/ipa"
	"github.com/MrWong99/phonexa/pkg/types"
)

func newAlignCmd() *cobra.Command {
	var (
		req     analysis.Request
		asJSON  bool
		noStrip bool
	)
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Score one utterance and print the per-word alignment",
		Example: `  phonexa align --sentence "The cat sat." --ipa "ðə kæt sæt" --phonemes "d ə k æ t s æ t"
  phonexa align --sentence "hello" --ipa "həˈloʊ" --phonemes "h ə l oʊ" --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := app.AnalysisOptions(config.Default().Alignment)
			if noStrip {
				opts.StripSymbols = nil
			}
			res, err := analysis.New(opts).Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printAnalysis(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&req.Sentence, "sentence", "", "reference sentence text")
	cmd.Flags().StringVar(&req.SentenceIPA, "ipa", "", "IPA transcription of the sentence, words separated by spaces")
	cmd.Flags().StringVar(&req.Phonemes, "phonemes", "", "recognised phonemes, separated by spaces")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	cmd.Flags().BoolVar(&noStrip, "keep-stress", false, "do not strip stress marks before tokenising")
	_ = cmd.MarkFlagRequired("ipa")
	_ = cmd.MarkFlagRequired("phonemes")
	return cmd
}

func printAnalysis(w io.Writer, res types.Analysis) error {
	if res.Failed() {
		_, err := fmt.Fprintf(w, "%s: %d recognised symbols cannot cover %d words\n",
			res.Alignment[0].Error, len(res.UserPhonemeArray), len(res.SentencePhonemeArray))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORD\tREFERENCE\tHEARD\tSCORE")
	for _, a := range res.Alignment {
		heard := a.UserPhonemes
		if heard == "" {
			heard = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\n", a.ReferenceWordText, a.ReferencePhonemes, heard, a.SimilarityScore)
	}
	fmt.Fprintf(tw, "\t\toverall\t%.1f\n", res.OverallSimilarity)
	return tw.Flush()
}

func newTokenizeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tokenize <ipa>",
		Short: "Split IPA text into phonetic symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ipa.NewNormalizer(config.DefaultStripSymbols...).String(args[0])
			words := ipa.Tokenize(text)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), words)
			}
			for _, word := range words {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(word, " ")); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the symbols as JSON")
	return cmd
}

func newDistanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance <a> <b>",
		Short: "Print the phonetic distance between two symbols (0 identical, 1 unrelated)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b := args[0], args[1]
			for _, s := range args {
				if !ipa.Known(s) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not in the symbol table\n", s)
				}
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", ipa.Distance(a, b))
			return err
		},
	}
}

func newSymbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List the symbol feature table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tKIND\tFEATURES")
			for _, sym := range ipa.Symbols() {
				f, ok := ipa.Lookup(sym)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", sym, f.Kind(), features(f))
			}
			return tw.Flush()
		},
	}
}

func features(f ipa.Features) string {
	switch v := f.(type) {
	case ipa.Consonant:
		return fmt.Sprintf("place=%d manner=%d voicing=%d", v.Place, v.Manner, v.Voicing)
	case ipa.Vowel:
		return fmt.Sprintf("height=%d backness=%d rounded=%d length=%d", v.Height, v.Backness, v.Rounded, v.Length)
	default:
		return ""
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
