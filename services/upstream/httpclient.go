package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidrelay/models"
)

// HTTPProvider talks to a drive-style object store over its REST API:
// a metadata endpoint, a media download endpoint honoring Range headers, and
// a permissions endpoint for making objects public.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var (
	_ Provider     = (*HTTPProvider)(nil)
	_ WholeFetcher = (*HTTPProvider)(nil)
)

// NewHTTPProvider builds a provider for the store rooted at baseURL. The
// client carries a generous overall timeout; per-chunk deadlines come from
// the caller's context.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type fileResource struct {
	ID           string `json:"id"`
	Size         int64  `json:"size,string"`
	MimeType     string `json:"mimeType"`
	CreatedTime  string `json:"createdTime"`
	ModifiedTime string `json:"modifiedTime"`
}

// FetchMetadata resolves the object's size, MIME type and timestamps.
func (p *HTTPProvider) FetchMetadata(ctx context.Context, id string) (models.FileMetadata, error) {
	url := fmt.Sprintf("%s/files/%s?fields=id,size,mimeType,createdTime,modifiedTime", p.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("build metadata request: %w", err)
	}
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("metadata request for %s: %w: %v", id, ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.FileMetadata{}, fmt.Errorf("file %s: %w", id, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return models.FileMetadata{}, fmt.Errorf("metadata request for %s returned %d: %w", id, resp.StatusCode, ErrTransient)
	}

	var res fileResource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return models.FileMetadata{}, fmt.Errorf("decode metadata for %s: %w", id, err)
	}

	meta := models.FileMetadata{
		ID:        id,
		SizeBytes: res.Size,
		MimeType:  res.MimeType,
	}
	if ts, err := time.Parse(time.RFC3339, res.CreatedTime); err == nil {
		meta.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, res.ModifiedTime); err == nil {
		meta.ModifiedAt = ts
	}
	return meta, nil
}

// FetchRange downloads bytes [start, start+length-1] of the object. Stores
// that answer a ranged request with a full 200 body are tolerated; the body
// is consumed only up to the requested window.
func (p *HTTPProvider) FetchRange(ctx context.Context, id string, start, length int64) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/files/%s?alt=media", p.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build range request: %w", err)
	}
	p.authorize(req)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, start+length-1))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("range request for %s: %w: %v", id, ErrTransient, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		data, err := io.ReadAll(io.LimitReader(resp.Body, length))
		if err != nil {
			return nil, fmt.Errorf("read range body for %s: %w: %v", id, ErrTransient, err)
		}
		return data, nil
	case http.StatusOK:
		// Store ignored the Range header; skip to the window instead of
		// buffering the whole object.
		if _, err := io.CopyN(io.Discard, resp.Body, start); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("skip to offset %d for %s: %w: %v", start, id, ErrTransient, err)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, length))
		if err != nil {
			return nil, fmt.Errorf("read range body for %s: %w: %v", id, ErrTransient, err)
		}
		return data, nil
	case http.StatusRequestedRangeNotSatisfiable:
		return nil, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	default:
		return nil, fmt.Errorf("range request for %s returned %d: %w", id, resp.StatusCode, ErrTransient)
	}
}

// FetchAll downloads the complete object in one request. Used only through
// the whole-object fallback adapter, which enforces the size gate before
// this is ever called.
func (p *HTTPProvider) FetchAll(ctx context.Context, id string) ([]byte, error) {
	url := fmt.Sprintf("%s/files/%s?alt=media", p.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request for %s: %w: %v", id, ErrTransient, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read download body for %s: %w: %v", id, ErrTransient, err)
		}
		return data, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	default:
		return nil, fmt.Errorf("download request for %s returned %d: %w", id, resp.StatusCode, ErrTransient)
	}
}

// MakePublic grants world-read on the object. Callers treat failures as
// advisory.
func (p *HTTPProvider) MakePublic(ctx context.Context, id string) error {
	payload, _ := json.Marshal(map[string]string{"role": "reader", "type": "anyone"})
	url := fmt.Sprintf("%s/files/%s/permissions", p.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build permissions request: %w", err)
	}
	p.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("permissions request for %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("permissions request for %s returned %d", id, resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}
}
