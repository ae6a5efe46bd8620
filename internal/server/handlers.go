package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MrWong99/phonexa/internal/analysis"
	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/pkg/ipa"
)

type batchRequest struct {
	Requests []analysis.Request `json:"requests"`
}

type batchResponse struct {
	Results []analysis.BatchItem `json:"results"`
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Attempts  []attempt.Attempt `json:"attempts"`
}

type tokenizeRequest struct {
	IPA string `json:"ipa"`
}

type tokenizeResponse struct {
	Words [][]string `json:"words"`
}

type distanceResponse struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	KnownA   bool    `json:"known_a"`
	KnownB   bool    `json:"known_b"`
	Distance float64 `json:"distance"`
}

type symbolInfo struct {
	Symbol   string         `json:"symbol"`
	Kind     string         `json:"kind"`
	Features map[string]int `json:"features"`
}

type symbolsResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Analyze(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	items, err := s.svc.AnalyzeBatch(r.Context(), req.Requests)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: items})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	limit := s.cfg.HistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	attempts, err := s.svc.History(r.Context(), sessionID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Attempts: attempts})
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "attempt id must be a positive integer")
		return
	}
	a, err := s.svc.Attempt(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, tokenizeResponse{Words: s.svc.Tokenize(req.IPA)})
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}
	writeJSON(w, http.StatusOK, distanceResponse{
		A:        a,
		B:        b,
		KnownA:   ipa.Known(a),
		KnownB:   ipa.Known(b),
		Distance: ipa.Distance(a, b),
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, _ *http.Request) {
	syms := ipa.Symbols()
	out := make([]symbolInfo, 0, len(syms))
	for _, sym := range syms {
		f, ok := ipa.Lookup(sym)
		if !ok {
			continue
		}
		out = append(out, describe(sym, f))
	}
	writeJSON(w, http.StatusOK, symbolsResponse{Symbols: out})
}

func describe(sym string, f ipa.Features) symbolInfo {
	info := symbolInfo{Symbol: sym, Kind: f.Kind().String()}
	switch v := f.(type) {
	case ipa.Consonant:
		info.Features = map[string]int{"place": v.Place, "manner": v.Manner, "voicing": v.Voicing}
	case ipa.Vowel:
		info.Features = map[string]int{"height": v.Height, "backness": v.Backness, "rounded": v.Rounded, "length": v.Length}
	}
	return info
}

// decode reads a JSON body into v. On failure it writes the error response
// and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		}
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return false
	}
	return true
}
