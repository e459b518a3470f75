package api

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/hoytnotlit/ltr-project/pipeline"
	"github.com/hoytnotlit/ltr-project/types"
	"github.com/hoytnotlit/ltr-project/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func dropFirstPipeline(ctx context.Context, request pipeline.Request) (pipeline.Result, error) {
	tokens := types.Tokenize(request.Text)
	if tokens[0] == "fail" {
		return pipeline.Result{}, errors.New("annotation service unreachable")
	}
	result := pipeline.Result{
		Index:    request.Index,
		Tokens:   tokens,
		Features: make([]types.TokenFeature, len(tokens)),
		Aligned:  true,
	}
	if len(tokens) > 1 {
		result.Corruption = &types.Corruption{
			Index: request.Index,
			Rule:  types.RulePronounSubjectDrop,
			Text:  types.Detokenize(tokens[1:]),
		}
	}
	return result, nil
}

func TestCorrupt(t *testing.T) {
	server := httptest.NewServer(NewMux(&Request{Pipeline: dropFirstPipeline}))
	defer server.Close()

	tests := []struct {
		name     string
		method   string
		body     string
		status   int
		expected *CorruptResponse
	}{
		{
			name:   "corrupted",
			method: http.MethodPost,
			body:   "Han springer snabbt",
			status: http.StatusOK,
			expected: &CorruptResponse{
				Tokens:    []string{"Han", "springer", "snabbt"},
				Features:  3,
				Aligned:   true,
				Corrupted: true,
				Rule:      types.RulePronounSubjectDrop,
				Text:      "springer snabbt",
			},
		},
		{
			name:   "not corrupted",
			method: http.MethodPost,
			body:   "Ja\n",
			status: http.StatusOK,
			expected: &CorruptResponse{
				Tokens:   []string{"Ja"},
				Features: 1,
				Aligned:  true,
			},
		},
		{name: "annotation failure", method: http.MethodPost, body: "fail now", status: http.StatusBadGateway},
		{name: "empty body", method: http.MethodPost, body: "  ", status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, server.URL+"/corrupt", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.expected == nil {
				return
			}
			var got CorruptResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, *tt.expected, got)
		})
	}
}

func TestStatus(t *testing.T) {
	t.Run("no run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		(&Request{}).Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("running", func(t *testing.T) {
		req := &Request{Progress: func() worker.Progress {
			return worker.Progress{RunID: "r1", Cursor: 7, Total: 10, Corrupted: 3, Running: true}
		}}
		rec := httptest.NewRecorder()
		req.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var got worker.Progress
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "r1", got.RunID)
		assert.Equal(t, 7, got.Cursor)
		assert.Equal(t, 3, got.Corrupted)
		assert.True(t, got.Running)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		(&Request{}).Status(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(&Request{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
