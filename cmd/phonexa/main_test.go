package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/phonexa/pkg/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAlignCmd_Table(t *testing.T) {
	out, err := execute(t, "align",
		"--sentence", "The cat sat.",
		"--ipa", "ðə kæt sæt",
		"--phonemes", "d ə k æ t s æ t",
	)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	for _, want := range []string{"WORD", "The", "də", "kæt", "100.0", "overall"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAlignCmd_JSON(t *testing.T) {
	out, err := execute(t, "align",
		"--sentence", "hello",
		"--ipa", "həˈloʊ",
		"--phonemes", "h ə l oʊ",
		"--json",
	)
	if err != nil {
		t.Fatalf("align --json: %v", err)
	}
	var res types.Analysis
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("unmarshal %s: %v", out, err)
	}
	if res.OverallSimilarity != 100 {
		t.Errorf("overall_similarity = %v, want 100", res.OverallSimilarity)
	}
}

func TestAlignCmd_Failure(t *testing.T) {
	out, err := execute(t, "align", "--sentence", "a b", "--ipa", "a b", "--phonemes", "a")
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if !strings.Contains(out, "Alignment failed") {
		t.Errorf("output = %q, want failure message", out)
	}
}

func TestAlignCmd_MissingFlags(t *testing.T) {
	if _, err := execute(t, "align", "--sentence", "a"); err == nil {
		t.Fatal("align without --ipa and --phonemes returned nil error")
	}
}

func TestTokenizeCmd(t *testing.T) {
	out, err := execute(t, "tokenize", "ˈtʃɪp ʃɪp")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	if lines[1] != "ʃ ɪ p" {
		t.Errorf("line 2 = %q, want %q", lines[1], "ʃ ɪ p")
	}
}

func TestDistanceCmd(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"p", "p", "0.0000"},
		{"p", "a", "0.8000"},
		{"p", "☃", "1.0000"},
	}
	for _, tt := range tests {
		t.Run(tt.a+tt.b, func(t *testing.T) {
			out, err := execute(t, "distance", tt.a, tt.b)
			if err != nil {
				t.Fatalf("distance: %v", err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("distance %s %s = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSymbolsCmd(t *testing.T) {
	out, err := execute(t, "symbols")
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if !strings.Contains(out, "consonant") || !strings.Contains(out, "vowel") {
		t.Errorf("symbols output lacks kinds:\n%s", out)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing default path uses defaults", func(t *testing.T) {
		cfg, fromFile, err := loadConfig(filepath.Join(t.TempDir(), "config.yaml"), false)
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if fromFile {
			t.Error("fromFile = true for a missing file")
		}
		if cfg.Server.ListenAddr != ":8000" {
			t.Errorf("ListenAddr = %q, want default", cfg.Server.ListenAddr)
		}
	})

	t.Run("missing explicit path fails", func(t *testing.T) {
		if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), true); err == nil {
			t.Fatal("loadConfig returned nil error")
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("server:\n  listen_addr: \":9100\"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, fromFile, err := loadConfig(path, true)
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if !fromFile || cfg.Server.ListenAddr != ":9100" {
			t.Errorf("got fromFile=%v addr=%q", fromFile, cfg.Server.ListenAddr)
		}
	})
}
