// Package recordapi is a RecordStore backed by a remote REST record service.
//
// Routes are collection-scoped: GET/POST /{collection}, GET/PUT/PATCH/DELETE
// /{collection}/{id}, and GET /{collection}?{field}={id} for parent lookups.
// List endpoints may answer with a bare array or with {"list": [...]}.
package recordapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/domain"
)

const (
	service     = "recordapi"
	maxAttempts = 4
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("record API base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("record API base URL: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- RecordStore ----

func (c *Client) GetAll(ctx context.Context, collection string) ([]domain.Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.url(collection, 0, nil), nil, &raw, collection+":list"); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return decodeList(raw)
}

func (c *Client) GetByID(ctx context.Context, collection string, id int64) (domain.Record, error) {
	var out domain.Record
	if err := c.do(ctx, http.MethodGet, c.url(collection, id, nil), nil, &out, collection+":get"); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", collection, id, err)
	}
	return out, nil
}

func (c *Client) GetByParent(ctx context.Context, collection, parentField string, parentID int64) ([]domain.Record, error) {
	q := url.Values{parentField: []string{strconv.FormatInt(parentID, 10)}}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.url(collection, 0, q), nil, &raw, collection+":by_parent"); err != nil {
		return nil, fmt.Errorf("list %s by %s=%d: %w", collection, parentField, parentID, err)
	}
	recs, err := decodeList(raw)
	if err != nil {
		return nil, err
	}
	// servers that ignore the filter still get the right answer; a record
	// without the field is not a child of anything under that key
	out := recs[:0]
	for _, r := range recs {
		if v, ok := r[parentField]; ok && sameID(v, parentID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, collection string, r domain.Record) (domain.Record, error) {
	body := r.Clone()
	delete(body, domain.IDField)
	var out domain.Record
	if err := c.do(ctx, http.MethodPost, c.url(collection, 0, nil), body, &out, collection+":create"); err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	return out, nil
}

func (c *Client) Put(ctx context.Context, collection string, r domain.Record) error {
	id := r.ID()
	if id <= 0 {
		return fmt.Errorf("put %s: missing id: %w", collection, domain.ErrInvalidRecord)
	}
	if err := c.do(ctx, http.MethodPut, c.url(collection, id, nil), r, nil, collection+":put"); err != nil {
		return fmt.Errorf("put %s %d: %w", collection, id, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, collection string, id int64, patch domain.Record) (domain.Record, error) {
	body := patch.Clone()
	delete(body, domain.IDField)
	var out domain.Record
	if err := c.do(ctx, http.MethodPatch, c.url(collection, id, nil), body, &out, collection+":update"); err != nil {
		return nil, fmt.Errorf("update %s %d: %w", collection, id, err)
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, collection string, id int64) error {
	if err := c.do(ctx, http.MethodDelete, c.url(collection, id, nil), nil, nil, collection+":delete"); err != nil {
		return fmt.Errorf("delete %s %d: %w", collection, id, err)
	}
	return nil
}

// ---- Internals ----

var (
	ErrUnauthorized = errors.New("recordapi: unauthorized")
	ErrForbidden    = errors.New("recordapi: forbidden")
)

func (c *Client) url(collection string, id int64, q url.Values) string {
	u := c.base + "/" + url.PathEscape(collection)
	if id > 0 {
		u += "/" + strconv.FormatInt(id, 10)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func decodeList(raw json.RawMessage) ([]domain.Record, error) {
	var arr []domain.Record
	if err := json.Unmarshal(raw, &arr); err == nil {
		if arr == nil {
			arr = []domain.Record{}
		}
		return arr, nil
	}
	var wrapped struct {
		List []domain.Record `json:"list"`
		Data []domain.Record `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if wrapped.List != nil {
		return wrapped.List, nil
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return []domain.Record{}, nil
}

func sameID(v any, id int64) bool {
	switch t := v.(type) {
	case float64:
		return t == float64(id)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil && f == float64(id)
	}
	return false
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodPut || method == http.MethodDelete
}

// do performs one call with client-side rate limiting, retries, and JSON decode into out.
// Idempotent methods retry on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, method, u string, in, out any, endpoint string) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		// build a fresh request each attempt
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "uni-directory/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if idempotent(method) && i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			defer resp.Body.Close()
			if out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusConflict:
			resp.Body.Close()
			return domain.ErrConflict

		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%s: %w", strings.TrimSpace(string(b)), domain.ErrInvalidRecord)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if (idempotent(method) || resp.StatusCode == http.StatusTooManyRequests) &&
				i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
