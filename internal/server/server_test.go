package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/phonexa/internal/analysis"
	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/internal/health"
	"github.com/MrWong99/phonexa/internal/observe"
	"github.com/MrWong99/phonexa/internal/server"
	"github.com/MrWong99/phonexa/pkg/types"
)

func newTestServer(t *testing.T, cfg server.Config) *httptest.Server {
	t.Helper()

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	store := &attempt.MemStore{}
	svc := analysis.New(analysis.Options{
		MaxReferenceWords:    8,
		MaxHypothesisSymbols: 32,
		StripSymbols:         []string{"ˈ", "ˌ"},
		BatchConcurrency:     2,
		Timeout:              5 * time.Second,
	}, analysis.WithMetrics(m), analysis.WithStore(store))

	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}
	srv := server.New(svc, cfg,
		server.WithMetrics(m),
		server.WithHealth(health.New(health.PingCheck("store", store))),
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return v
}

const catRequest = `{"sentence":"The cat sat.","sentence_ipa":"ðə ˈkæt sæt","phonemes":"ð ə k æ t s æ t"}`

func TestAnalyze_OK(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	resp, data := do(t, ts, http.MethodPost, "/v1/analysis", catRequest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"sentence_array", "sentence_phoneme_array", "user_phoneme_array", "alignment", "overall_similarity"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("response missing %q: %s", key, data)
		}
	}

	res := decodeInto[types.Analysis](t, data)
	if len(res.Alignment) != 3 {
		t.Fatalf("len(alignment) = %d, want 3", len(res.Alignment))
	}
	if res.Alignment[1].ReferenceWordText != "cat" || res.Alignment[1].UserPhonemes != "kæt" {
		t.Errorf("alignment[1] = %+v", res.Alignment[1])
	}
	if res.OverallSimilarity != 100 {
		t.Errorf("overall_similarity = %v, want 100", res.OverallSimilarity)
	}
}

func TestAnalyze_AlignmentFailureIsNotAnError(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	resp, data := do(t, ts, http.MethodPost, "/v1/analysis",
		`{"sentence":"The cat sat","sentence_ipa":"ðə kæt sæt","phonemes":"k"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}
	if !strings.Contains(string(data), `"error":"Alignment failed"`) {
		t.Errorf("body = %s, want failure entry", data)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        server.Config
		body       string
		wantStatus int
	}{
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"sentence":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"sentence":"a","sentence_ipa":"a","beam_width":3}`, wantStatus: http.StatusBadRequest},
		{name: "trailing data", body: `{"sentence":"a","sentence_ipa":"a"} {}`, wantStatus: http.StatusBadRequest},
		{name: "empty sentence", body: `{"phonemes":"a"}`, wantStatus: http.StatusBadRequest},
		{name: "both phoneme forms", body: `{"sentence":"a","sentence_ipa":"a","phonemes":"a","phoneme_tokens":["a"]}`, wantStatus: http.StatusBadRequest},
		{
			name:       "too many symbols",
			body:       fmt.Sprintf(`{"sentence":"a","sentence_ipa":"a","phonemes":%q}`, strings.Repeat("a ", 33)),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "body too large",
			cfg:        server.Config{MaxBodyBytes: 32},
			body:       catRequest,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t, tt.cfg)

			resp, data := do(t, ts, http.MethodPost, "/v1/analysis", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, data)
			}
			body := decodeInto[map[string]string](t, data)
			if body["error"] == "" {
				t.Errorf("error body = %s, want an error message", data)
			}
		})
	}
}

func TestAnalyzeBatch(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	body := `{"requests":[` + catRequest + `,{}]}`
	resp, data := do(t, ts, http.MethodPost, "/v1/analysis/batch", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}

	got := decodeInto[struct {
		Results []analysis.BatchItem `json:"results"`
	}](t, data)
	if len(got.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(got.Results))
	}
	if got.Results[0].Analysis == nil || got.Results[0].Analysis.OverallSimilarity != 100 {
		t.Errorf("results[0] = %+v", got.Results[0])
	}
	if got.Results[1].Error == "" {
		t.Errorf("results[1] = %+v, want error", got.Results[1])
	}
}

func TestAnalyzeBatch_TooLarge(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	reqs := make([]string, analysis.MaxBatchSize+1)
	for i := range reqs {
		reqs[i] = catRequest
	}
	resp, data := do(t, ts, http.MethodPost, "/v1/analysis/batch", `{"requests":[`+strings.Join(reqs, ",")+`]}`)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", resp.StatusCode, data)
	}
}

func TestHistoryAndAttempt(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{HistoryLimit: 10})

	withSession := strings.Replace(catRequest, `{`, `{"session_id":"learner-7",`, 1)
	for range 3 {
		if resp, data := do(t, ts, http.MethodPost, "/v1/analysis", withSession); resp.StatusCode != http.StatusOK {
			t.Fatalf("analysis status = %d, body = %s", resp.StatusCode, data)
		}
	}

	resp, data := do(t, ts, http.MethodGet, "/v1/sessions/learner-7/attempts?limit=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d, body = %s", resp.StatusCode, data)
	}
	hist := decodeInto[struct {
		SessionID string            `json:"session_id"`
		Attempts  []attempt.Attempt `json:"attempts"`
	}](t, data)
	if hist.SessionID != "learner-7" {
		t.Errorf("session_id = %q", hist.SessionID)
	}
	if len(hist.Attempts) != 2 {
		t.Fatalf("len(attempts) = %d, want 2", len(hist.Attempts))
	}
	if hist.Attempts[0].ID < hist.Attempts[1].ID {
		t.Errorf("attempts not newest first: ids %d, %d", hist.Attempts[0].ID, hist.Attempts[1].ID)
	}

	path := fmt.Sprintf("/v1/attempts/%d", hist.Attempts[0].ID)
	resp, data = do(t, ts, http.MethodGet, path, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("attempt status = %d, body = %s", resp.StatusCode, data)
	}
	a := decodeInto[attempt.Attempt](t, data)
	if a.SessionID != "learner-7" || len(a.Words) != 3 {
		t.Errorf("attempt = %+v", a)
	}
}

func TestHistory_Errors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/v1/sessions/s/attempts?limit=abc", http.StatusBadRequest},
		{"/v1/sessions/s/attempts?limit=0", http.StatusBadRequest},
		{"/v1/sessions/unknown/attempts", http.StatusOK},
		{"/v1/attempts/999", http.StatusNotFound},
		{"/v1/attempts/abc", http.StatusBadRequest},
		{"/v1/attempts/-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, data := do(t, ts, http.MethodGet, tt.path, "")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, data)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	resp, data := do(t, ts, http.MethodPost, "/v1/tokenize", `{"ipa":"həˈloʊ wɝld"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}
	got := decodeInto[struct {
		Words [][]string `json:"words"`
	}](t, data)
	if len(got.Words) != 2 {
		t.Fatalf("words = %q, want 2 words", got.Words)
	}
	if strings.Join(got.Words[0], " ") != "h ə l oʊ" {
		t.Errorf("words[0] = %q, want [h ə l oʊ]", got.Words[0])
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	resp, data := do(t, ts, http.MethodGet, "/v1/distance?a=p&b=b", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}
	got := decodeInto[struct {
		Distance float64 `json:"distance"`
		KnownA   bool    `json:"known_a"`
		KnownB   bool    `json:"known_b"`
	}](t, data)
	if !got.KnownA || !got.KnownB {
		t.Errorf("known = %v/%v, want both true", got.KnownA, got.KnownB)
	}
	if got.Distance <= 0 || got.Distance >= 1 {
		t.Errorf("distance(p, b) = %v, want in (0, 1)", got.Distance)
	}

	resp, _ = do(t, ts, http.MethodGet, "/v1/distance?a=p", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing b: status = %d, want 400", resp.StatusCode)
	}
}

func TestSymbols(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	resp, data := do(t, ts, http.MethodGet, "/v1/symbols", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}
	got := decodeInto[struct {
		Symbols []struct {
			Symbol   string         `json:"symbol"`
			Kind     string         `json:"kind"`
			Features map[string]int `json:"features"`
		} `json:"symbols"`
	}](t, data)
	if len(got.Symbols) == 0 {
		t.Fatal("no symbols returned")
	}
	for _, s := range got.Symbols {
		if s.Symbol != "oʊ" {
			continue
		}
		if s.Kind != "vowel" || s.Features["length"] == 0 {
			t.Errorf("oʊ = %+v, want a long vowel", s)
		}
		return
	}
	t.Error("symbol oʊ not listed")
}

func TestRouting(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/v1/analysis", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, data := do(t, ts, tt.method, tt.path, "")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, data)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# metrics\n")
	})
	ts := newTestServer(t, server.Config{MetricsPath: "/metrics", MetricsHandler: metrics})

	resp, data := do(t, ts, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK || string(data) != "# metrics\n" {
		t.Errorf("GET /metrics = %d %q", resp.StatusCode, data)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, server.Config{})

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:3000", "http://localhost:3000"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/analysis", nil)
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := ts.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{analysis.ErrEmptySentence, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", analysis.ErrInputTooLarge), http.StatusRequestEntityTooLarge},
		{attempt.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := server.StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
