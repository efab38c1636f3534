package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// fakeAzure serves the analyze + poll endpoints. The first `pending` polls
// report "running".
func fakeAzure(t *testing.T, pending int32, final string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/formrecognizer/documentModels/prebuilt-document:analyze", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "2023-07-31", r.URL.Query().Get("api-version"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-fake", string(body))

		w.Header().Set("Operation-Location", srv.URL+"/operations/42")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/operations/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		if polls.Add(1) <= pending {
			_, _ = w.Write([]byte(`{"status": "running"}`))
			return
		}
		_, _ = w.Write([]byte(final))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "2025-01.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-fake"), 0o644))
	return path
}

func TestAzureExtractor_Extract(t *testing.T) {
	final, err := os.ReadFile("../../testdata/azure_analyze_result.json")
	require.NoError(t, err)

	srv, polls := fakeAzure(t, 2, string(final))
	ex := NewAzureExtractor(AzureConfig{
		Endpoint:     srv.URL + "/",
		Key:          "test-key",
		PollInterval: time.Millisecond,
	}, srv.Client(), zerolog.Nop())

	raw, err := ex.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())

	assert.Equal(t, "2025-01", raw.ID)
	assert.Equal(t, "azure", raw.Extractor)
	assert.Equal(t, model.Text("$1,000.00"), raw.StartingBalance)
	assert.Equal(t, model.Text("$1,094.25"), raw.EndingBalance)
	require.Len(t, raw.Transactions, 3)
	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", raw.Transactions[0].Description)
	assert.Equal(t, model.Text("(51.75)"), raw.Transactions[2].Amount)
}

func TestAzureExtractor_AnalysisFailed(t *testing.T) {
	srv, _ := fakeAzure(t, 0, `{"status": "failed", "error": {"code": "InvalidContent", "message": "The file is corrupted."}}`)
	ex := NewAzureExtractor(AzureConfig{Endpoint: srv.URL, Key: "test-key", PollInterval: time.Millisecond}, srv.Client(), zerolog.Nop())

	_, err := ex.Extract(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The file is corrupted.")
}

func TestAzureExtractor_SubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"code": "401", "message": "Access denied due to invalid subscription key."}}`))
	}))
	defer srv.Close()

	ex := NewAzureExtractor(AzureConfig{Endpoint: srv.URL, Key: "wrong"}, srv.Client(), zerolog.Nop())
	_, err := ex.Analyze(context.Background(), []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid subscription key")
}

func TestAzureExtractor_MissingOperationLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ex := NewAzureExtractor(AzureConfig{Endpoint: srv.URL, Key: "k"}, srv.Client(), zerolog.Nop())
	_, err := ex.Analyze(context.Background(), []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operation-Location")
}

func TestAzureExtractor_Timeout(t *testing.T) {
	srv, _ := fakeAzure(t, 1<<30, "")
	ex := NewAzureExtractor(AzureConfig{
		Endpoint:     srv.URL,
		Key:          "test-key",
		PollInterval: 5 * time.Millisecond,
		Timeout:      50 * time.Millisecond,
	}, srv.Client(), zerolog.Nop())

	_, err := ex.Analyze(context.Background(), []byte("%PDF-fake"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAzureExtractor_RequiresCredentials(t *testing.T) {
	ex := NewAzureExtractor(AzureConfig{}, nil, zerolog.Nop())
	_, err := ex.Analyze(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint and key")
}

func TestAzureExtractor_Defaults(t *testing.T) {
	ex := NewAzureExtractor(AzureConfig{}, nil, zerolog.Nop())
	assert.Equal(t, AzureDefaultModel, ex.cfg.ModelID)
	assert.Equal(t, AzureDefaultAPIVersion, ex.cfg.APIVersion)
	assert.Equal(t, time.Second, ex.cfg.PollInterval)
	assert.Equal(t, "azure", ex.Name())
}
