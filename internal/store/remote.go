package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSnapshotTimeout = 10 * time.Second

// Remote reads the record set from a read-only snapshot URL and writes to a
// local fallback file. The fallback file is never read back: every Load
// fetches the remote snapshot again, so local saves do not survive the next
// cycle. The remote snapshot is the source of truth.
type Remote struct {
	url      string
	client   *http.Client
	fallback *File
}

// NewRemote returns a Remote backend. A nil client gets a default client with
// a bounded timeout.
func NewRemote(snapshotURL string, fallback *File, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: defaultSnapshotTimeout}
	}
	return &Remote{url: snapshotURL, client: client, fallback: fallback}
}

func (r *Remote) Name() string { return "remote" }

// Load fetches and decodes the remote snapshot.
func (r *Remote) Load(ctx context.Context) (Records, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote store: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote store: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote store: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote store: read body: %w", err)
	}
	return decodeRecords(data)
}

// Save writes recs to the local fallback file only.
func (r *Remote) Save(ctx context.Context, recs Records) error {
	return r.fallback.Save(ctx, recs)
}
