package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"pinvault/internal/config"
	"pinvault/internal/domain/record"
)

// HTTPStore talks to the vaultd document store. The bearer token comes
// from the external identity provider and is opaque here; a missing
// token surfaces as ErrNotSignedIn before any request is made.
type HTTPStore struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	tokenPath string
	userAgent string
}

func NewHTTPStore(cfg *config.Config, log *slog.Logger) *HTTPStore {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &HTTPStore{
		client:    client,
		log:       log.With("component", "remote"),
		baseURL:   scheme + cfg.ServerAddress,
		tokenPath: cfg.TokenPath,
		userAgent: "pinvault-client/1.0",
	}
}

func (h *HTTPStore) token() (string, error) {
	data, err := os.ReadFile(h.tokenPath)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return "", ErrNotSignedIn
	}
	return string(bytes.TrimSpace(data)), nil
}

func (h *HTTPStore) doRequest(ctx context.Context, method, path string, body, out any) error {
	token, err := h.token()
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to serialize request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote store unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrNotSignedIn
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote store returned %d: %s", resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (h *HTTPStore) ListRecords(ctx context.Context) ([]record.CloudRecord, error) {
	var resp struct {
		Records []record.CloudRecord `json:"records"`
	}
	if err := h.doRequest(ctx, http.MethodGet, "/api/records", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (h *HTTPStore) PutRecord(ctx context.Context, rec record.CloudRecord) error {
	path := "/api/records/" + strconv.FormatInt(rec.ID, 10)
	return h.doRequest(ctx, http.MethodPut, path, rec, nil)
}

func (h *HTTPStore) DeleteRecord(ctx context.Context, id int64) error {
	path := "/api/records/" + strconv.FormatInt(id, 10)
	return h.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

func (h *HTTPStore) GetCursor(ctx context.Context) (record.SyncCursor, error) {
	var resp struct {
		Cursor record.SyncCursor `json:"cursor"`
	}
	if err := h.doRequest(ctx, http.MethodGet, "/api/cursor", nil, &resp); err != nil {
		return record.SyncCursor{}, err
	}
	return resp.Cursor, nil
}

func (h *HTTPStore) PutCursor(ctx context.Context, cursor record.SyncCursor) error {
	return h.doRequest(ctx, http.MethodPut, "/api/cursor", cursor, nil)
}

func (h *HTTPStore) Changes(ctx context.Context, since time.Time) ([]Event, error) {
	var resp struct {
		Changes []Event `json:"changes"`
	}
	path := "/api/changes?since=" + since.UTC().Format(time.RFC3339Nano)
	if err := h.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Changes, nil
}

// Poll turns the Changes feed into an event channel for the sync
// listener, the stand-in for a push subscription on the collection.
func (h *HTTPStore) Poll(ctx context.Context, interval time.Duration) <-chan Event {
	ch := make(chan Event, 64)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		since := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			events, err := h.Changes(ctx, since)
			if err != nil {
				if !errors.Is(err, ErrNotSignedIn) {
					h.log.Debug("change poll failed", "error", err)
				}
				continue
			}
			for _, e := range events {
				if e.CloudUpdatedAt.After(since) {
					since = e.CloudUpdatedAt
				}
				select {
				case ch <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}
