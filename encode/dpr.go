package encode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default endpoints assume a host application fronts the reference bi-
// encoder pair (facebook/dpr-question_encoder-single-nq-base for queries,
// facebook/dpr-ctx_encoder-single-nq-base for passages, §6) behind a small
// inference server; DPREncoder only knows the HTTP contract, not the model
// internals.
const (
	defaultQueryURL    = "http://localhost:8081/encode/query"
	defaultPassageURL  = "http://localhost:8081/encode/passages"
	defaultQueryModel  = "facebook/dpr-question_encoder-single-nq-base"
	defaultPassageModel = "facebook/dpr-ctx_encoder-single-nq-base"
)

// DPREncoder implements index.Encoder against an HTTP inference service
// hosting a DPR-style bi-encoder (or a single-encoder fallback, in which
// case queryURL and passageURL point at the same endpoint). When
// Config.RequestsPerSecond is positive, outbound calls are paced by a
// rate.Limiter so a caller appending many passages does not overrun the
// service; otherwise they are not throttled.
type DPREncoder struct {
	client       *http.Client
	queryURL     string
	passageURL   string
	queryModel   string
	passageModel string
	limiter      *rate.Limiter
}

// NewDPREncoder builds a DPREncoder from cfg, filling in the reference DPR
// endpoints and model names where cfg leaves them blank.
func NewDPREncoder(cfg Config) (*DPREncoder, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	e := &DPREncoder{
		client:       &http.Client{Timeout: timeout},
		queryURL:     cfg.QueryURL,
		passageURL:   cfg.PassageURL,
		queryModel:   cfg.QueryModel,
		passageModel: cfg.PassageModel,
	}
	if e.queryURL == "" {
		e.queryURL = defaultQueryURL
	}
	if e.passageURL == "" {
		e.passageURL = defaultPassageURL
	}
	if e.queryModel == "" {
		e.queryModel = defaultQueryModel
	}
	if e.passageModel == "" {
		e.passageModel = defaultPassageModel
	}

	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return e, nil
}

type encodeRequest struct {
	Inputs []string `json:"inputs"`
	Model  string   `json:"model"`
}

type encodeResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EncodeQuery embeds a single query string using the question encoder.
func (e *DPREncoder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	rows, err := e.call(ctx, e.queryURL, e.queryModel, []string{text})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("encode query: empty response")
	}
	return rows[0], nil
}

// EncodePassages embeds a batch of passage strings using the context
// encoder in a single request. Batch-size policy is the caller's
// responsibility (index.DenseIndex.Append applies the batch-of-8 rule).
func (e *DPREncoder) EncodePassages(ctx context.Context, texts []string) ([][]float32, error) {
	rows, err := e.call(ctx, e.passageURL, e.passageModel, texts)
	if err != nil {
		return nil, fmt.Errorf("encode passages: %w", err)
	}
	if len(rows) != len(texts) {
		return nil, fmt.Errorf("encode passages: got %d embeddings for %d inputs", len(rows), len(texts))
	}
	return rows, nil
}

func (e *DPREncoder) call(ctx context.Context, url, model string, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(encodeRequest{Inputs: texts, Model: model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed: %s: %s", resp.Status, string(respBody))
	}

	var decoded encodeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return decoded.Embeddings, nil
}
