package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/straywatch/straywatch/pkg/models"
)

// httpCSVSource reads a published CSV export of the observation sheet.
type httpCSVSource struct {
	url    string
	client *http.Client
}

// NewHTTPCSVSource returns a read-only ObservationLog that fetches the CSV
// document at url on every ReadAll. A nil client uses a 15 second timeout.
func NewHTTPCSVSource(url string, client *http.Client) ObservationLog {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &httpCSVSource{url: url, client: client}
}

// Append always fails; the published export cannot be written.
func (s *httpCSVSource) Append(_ context.Context, _ models.Observation) error {
	return ErrReadOnly
}

// ReadAll fetches and parses the CSV document.
func (s *httpCSVSource) ReadAll(ctx context.Context) ([]models.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building csv request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching published csv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("published csv returned status %d", resp.StatusCode)
	}

	rows, err := readCSVRows(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing published csv: %w", err)
	}
	return rows, nil
}

func (s *httpCSVSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
