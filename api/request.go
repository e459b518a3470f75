package api

import (
	"encoding/json"
	"github.com/hoytnotlit/ltr-project/pipeline"
	"github.com/hoytnotlit/ltr-project/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"io"
	"net/http"
	"strings"
)

const maxSentenceBytes = 1 << 16

type Request struct {
	Pipeline pipeline.Pipeline
	// Progress reports the running batch, nil when no batch runs in this process.
	Progress func() worker.Progress
}

type CorruptResponse struct {
	Index     int      `json:"index"`
	Tokens    []string `json:"tokens"`
	Features  int      `json:"features"`
	Aligned   bool     `json:"aligned"`
	Degraded  bool     `json:"degraded"`
	Corrupted bool     `json:"corrupted"`
	Rule      string   `json:"rule,omitempty"`
	Text      string   `json:"text,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewMux(req *Request) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/corrupt", req.Corrupt)
	mux.HandleFunc("/status", req.Status)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Corrupt runs the pipeline over the sentence sent as the request body.
// Nothing is written to the output.
func (req *Request) Corrupt(w http.ResponseWriter, r *http.Request) {
	logger := makeRequestLogger(r)

	if r.Method != http.MethodPost {
		logger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	msg, err := io.ReadAll(io.LimitReader(r.Body, maxSentenceBytes))
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(string(msg))
	if text == "" {
		logger.Err(nil).Int("status", http.StatusBadRequest).Msg("Empty sentence")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty sentence"})
		return
	}

	logger.Info().Msg("Starting pipeline for request from API")
	result, err := req.Pipeline(r.Context(), pipeline.Request{Index: 0, Text: text})
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadGateway).Msg("Annotation failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	resp := CorruptResponse{
		Index:    result.Index,
		Tokens:   result.Tokens,
		Features: len(result.Features),
		Aligned:  result.Aligned,
		Degraded: result.Degraded,
	}
	if result.Corruption != nil {
		resp.Corrupted = true
		resp.Rule = result.Corruption.Rule
		resp.Text = result.Corruption.Text
	}
	writeJSON(w, http.StatusOK, resp)
	logger.Info().Int("status", http.StatusOK).Bool("corrupted", resp.Corrupted).Msg("Finished processing request")
}

func (req *Request) Status(w http.ResponseWriter, r *http.Request) {
	logger := makeRequestLogger(r)

	if r.Method != http.MethodGet {
		logger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'GET' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	if req.Progress == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no run in progress"})
		return
	}
	writeJSON(w, http.StatusOK, req.Progress())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
