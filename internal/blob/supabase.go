package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// SupabaseStore talks to a Supabase-compatible storage API over HTTP.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func NewSupabaseStore(supabaseURL, serviceKey, bucket string) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    supabaseURL + "/storage/v1",
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// EnsureBucket creates the bucket if it does not already exist.
func (s *SupabaseStore) EnsureBucket(ctx context.Context) error {
	resp, err := s.do(ctx, "GET", fmt.Sprintf("%s/bucket/%s", s.baseURL, s.bucket), nil, "")
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 400 {
		return nil
	}

	payload, _ := json.Marshal(map[string]string{"name": s.bucket, "id": s.bucket})
	resp, err = s.do(ctx, "POST", s.baseURL+"/bucket", bytes.NewReader(payload), "application/json")
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create bucket failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *SupabaseStore) Put(ctx context.Context, key, contentType string, data io.Reader) error {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, key)

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, data); err != nil {
		return fmt.Errorf("read upload data: %w", err)
	}

	resp, err := s.do(ctx, "POST", url, buf, contentType)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *SupabaseStore) Get(ctx context.Context, key string) (*Object, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, key)

	resp, err := s.do(ctx, "GET", url, nil, "")
	if err != nil {
		return nil, fmt.Errorf("download object: %w", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed (%d)", resp.StatusCode)
	}

	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return &Object{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: length,
	}, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, key)

	resp, err := s.do(ctx, "DELETE", url, nil, "")
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete failed (%d)", resp.StatusCode)
	}
	return nil
}

// SignedURL returns a time-limited download URL for key.
func (s *SupabaseStore) SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	url := fmt.Sprintf("%s/object/sign/%s/%s", s.baseURL, s.bucket, key)

	payload, _ := json.Marshal(map[string]int64{"expiresIn": int64(expiresIn.Seconds())})
	resp, err := s.do(ctx, "POST", url, bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", fmt.Errorf("sign object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sign failed (%d): %s", resp.StatusCode, string(body))
	}

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("parse sign response: %w", err)
	}
	return s.baseURL + out.SignedURL, nil
}

func (s *SupabaseStore) do(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return s.httpClient.Do(req)
}
