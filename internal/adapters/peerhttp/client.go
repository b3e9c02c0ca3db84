// Package peerhttp は相手サービスの HTTP API を呼び出すクライアント実装です。
// 一括取得は常に 1 リクエストで行い、並列ファンアウトはしません。
package peerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const defaultTimeout = 5 * time.Second

// StatusError はピアが 2xx 以外を返したことを表します。
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("peer returned status %d", e.StatusCode)
}

// Option はクライアントの設定を変更します。
type Option func(*caller)

// WithHTTPClient は HTTP クライアントを差し替えます（既定はタイムアウト 5 秒）。
func WithHTTPClient(c *http.Client) Option {
	return func(p *caller) {
		p.client = c
	}
}

// caller はベース URL に対する JSON リクエストの共通処理です。
type caller struct {
	baseURL string
	client  *http.Client
}

func newCaller(baseURL string, opts ...Option) caller {
	p := caller{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p caller) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID(ctx))

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (p caller) putJSON(ctx context.Context, path string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID(ctx))

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	return nil
}

func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// requestID は受信リクエストの相関 ID を引き継ぎます。無ければ新規採番します。
func requestID(ctx context.Context) string {
	if id := chimid.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
