package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-staged/model"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// HTTPSource fetches the document with a single GET.
type HTTPSource struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPSource returns a source using http.DefaultClient.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: url, Timeout: timeout}
}

func (s *HTTPSource) Name() string { return s.URL }

func (s *HTTPSource) Fetch(ctx context.Context) (doc model.Document, err error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return doc, &FetchError{Source: s.Name(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return doc, &FetchError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return doc, &FetchError{Source: s.Name(), Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var payload map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&payload); err != nil {
		return doc, &FetchError{Source: s.Name(), Err: fmt.Errorf("parse body: %w", err)}
	}
	if payload == nil {
		return doc, &FetchError{Source: s.Name(), Err: fmt.Errorf("empty document")}
	}
	return decode(s.Name(), payload)
}
