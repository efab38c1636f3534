package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

const (
	AzureDefaultModel      = "prebuilt-document"
	AzureDefaultAPIVersion = "2023-07-31"

	azureKeyHeader     = "Ocp-Apim-Subscription-Key"
	azureOpLocation    = "Operation-Location"
	azureMaxErrorBytes = 4096
)

// AzureConfig configures the Azure AI Document Intelligence extractor.
type AzureConfig struct {
	Endpoint     string // e.g. https://myresource.cognitiveservices.azure.com
	Key          string
	ModelID      string
	APIVersion   string
	PollInterval time.Duration
	Timeout      time.Duration // overall limit per document, 0 = none
}

// AzureExtractor sends statements to Azure's layout-analysis API and applies
// FromLayout to the result.
type AzureExtractor struct {
	cfg    AzureConfig
	client *http.Client
	log    zerolog.Logger
}

// NewAzureExtractor creates an AzureExtractor. A nil client uses http.DefaultClient.
func NewAzureExtractor(cfg AzureConfig, client *http.Client, log zerolog.Logger) *AzureExtractor {
	if cfg.ModelID == "" {
		cfg.ModelID = AzureDefaultModel
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = AzureDefaultAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &AzureExtractor{cfg: cfg, client: client, log: log}
}

// Name returns the extractor name.
func (a *AzureExtractor) Name() string { return "azure" }

// Extract analyzes the PDF at path.
func (a *AzureExtractor) Extract(ctx context.Context, path string) (model.RawStatement, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("reading %s: %w", path, err)
	}
	layout, err := a.Analyze(ctx, doc)
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("analyzing %s: %w", path, err)
	}
	return stamp(FromLayout(layout), path, a.Name()), nil
}

// Analyze submits doc and polls until the analysis finishes.
func (a *AzureExtractor) Analyze(ctx context.Context, doc []byte) (Layout, error) {
	if a.cfg.Endpoint == "" || a.cfg.Key == "" {
		return Layout{}, fmt.Errorf("azure endpoint and key are required")
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	opURL, err := a.submit(ctx, doc)
	if err != nil {
		return Layout{}, err
	}
	a.log.Debug().Str("operation", opURL).Msg("analysis submitted")

	for {
		body, status, err := a.poll(ctx, opURL)
		if err != nil {
			return Layout{}, err
		}
		switch status {
		case "succeeded":
			return decodeAnalyzeResult(body)
		case "failed", "canceled":
			return Layout{}, fmt.Errorf("analysis %s: %s", status, errorMessage(body))
		}

		a.log.Debug().Str("status", status).Msg("analysis pending")
		select {
		case <-ctx.Done():
			return Layout{}, fmt.Errorf("waiting for analysis: %w", ctx.Err())
		case <-time.After(a.cfg.PollInterval):
		}
	}
}

func (a *AzureExtractor) submit(ctx context.Context, doc []byte) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(a.cfg.Endpoint, "/"), a.cfg.ModelID, a.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("building analyze request: %w", err)
	}
	req.Header.Set(azureKeyHeader, a.cfg.Key)
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, azureMaxErrorBytes))
		return "", fmt.Errorf("submitting document: %s: %s", resp.Status, errorMessage(body))
	}

	opURL := resp.Header.Get(azureOpLocation)
	if opURL == "" {
		return "", fmt.Errorf("submitting document: response has no %s header", azureOpLocation)
	}
	return opURL, nil
}

func (a *AzureExtractor) poll(ctx context.Context, opURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building poll request: %w", err)
	}
	req.Header.Set(azureKeyHeader, a.cfg.Key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("polling analysis: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("polling analysis: %s: %s", resp.Status, errorMessage(body))
	}

	status, err := lookupString(body, "$.status")
	if err != nil {
		return nil, "", fmt.Errorf("polling analysis: %w", err)
	}
	return body, strings.ToLower(status), nil
}

// lookupString evaluates a JSONPath expression against a JSON document and
// returns the string it selects.
func lookupString(body []byte, path string) (string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("reading %s: not a string: %v", path, v)
	}
	return s, nil
}

func errorMessage(body []byte) string {
	if msg, err := lookupString(body, "$.error.message"); err == nil {
		return msg
	}
	return strings.TrimSpace(string(body))
}

type azureContent struct {
	Content string `json:"content"`
}

type analyzeOperation struct {
	AnalyzeResult struct {
		KeyValuePairs []struct {
			Key   *azureContent `json:"key"`
			Value *azureContent `json:"value"`
		} `json:"keyValuePairs"`
		Tables []struct {
			Cells []struct {
				RowIndex    int    `json:"rowIndex"`
				ColumnIndex int    `json:"columnIndex"`
				Content     string `json:"content"`
			} `json:"cells"`
		} `json:"tables"`
	} `json:"analyzeResult"`
}

func decodeAnalyzeResult(body []byte) (Layout, error) {
	var op analyzeOperation
	if err := json.Unmarshal(body, &op); err != nil {
		return Layout{}, fmt.Errorf("decoding analyze result: %w", err)
	}

	var l Layout
	for _, kv := range op.AnalyzeResult.KeyValuePairs {
		var out KeyValue
		if kv.Key != nil {
			out.Key = kv.Key.Content
		}
		if kv.Value != nil {
			out.Value = kv.Value.Content
		}
		l.KeyValues = append(l.KeyValues, out)
	}
	for _, t := range op.AnalyzeResult.Tables {
		var table Table
		for _, c := range t.Cells {
			table.Cells = append(table.Cells, Cell{Row: c.RowIndex, Column: c.ColumnIndex, Content: c.Content})
		}
		l.Tables = append(l.Tables, table)
	}
	return l, nil
}
