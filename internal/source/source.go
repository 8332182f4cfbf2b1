// Package source fetches the bytes of a submitted document.
package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"careaudit-backend/internal/shared/storage/object"
)

var (
	ErrNoSource       = errors.New("no document source provided")
	ErrTooLarge       = errors.New("document exceeds size limit")
	ErrInvalidDataURL = errors.New("invalid data url")
)

const (
	defaultTimeout  = 60 * time.Second
	defaultMaxBytes = 25 << 20
)

// Reference points at a document. Exactly one field is expected; when several
// are set the first non-empty of DataURL, TempKey, URL wins.
type Reference struct {
	DataURL string
	TempKey string
	URL     string
}

// Fetcher resolves References to bytes. URL sources may only reach public
// addresses unless AllowPrivateNetworks was called.
type Fetcher struct {
	store        object.ObjectStore
	http         *resty.Client
	maxBytes     int64
	allowPrivate bool
}

// NewFetcher constructs a Fetcher. store may be nil if temp uploads are not used.
func NewFetcher(store object.ObjectStore, timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	f := &Fetcher{store: store, maxBytes: maxBytes}
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second, Control: f.dialControl}
	f.http = resty.New().
		SetTransport(&http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		}).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		AddRetryCondition(retryable).
		SetResponseBodyLimit(int(maxBytes)).
		SetHeader("User-Agent", "careaudit-worker/1.0")
	return f
}

// AllowPrivateNetworks lets URL sources reach loopback and private hosts.
// Dev and tests only.
func (f *Fetcher) AllowPrivateNetworks() *Fetcher {
	f.allowPrivate = true
	return f
}

func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, ErrBlockedAddress) && !errors.Is(err, resty.ErrResponseBodyTooLarge)
	}
	return resp != nil && resp.StatusCode() >= http.StatusInternalServerError
}

// Fetch returns the document bytes for ref.
func (f *Fetcher) Fetch(ctx context.Context, ref Reference) ([]byte, error) {
	switch {
	case strings.TrimSpace(ref.DataURL) != "":
		data, err := DecodeDataURL(ref.DataURL)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > f.maxBytes {
			return nil, ErrTooLarge
		}
		return data, nil
	case strings.TrimSpace(ref.TempKey) != "":
		return f.fetchObject(ctx, ref.TempKey)
	case strings.TrimSpace(ref.URL) != "":
		return f.fetchURL(ctx, ref.URL)
	default:
		return nil, ErrNoSource
	}
}

func (f *Fetcher) fetchObject(ctx context.Context, key string) ([]byte, error) {
	if f.store == nil {
		return nil, fmt.Errorf("temp file %s: object store not configured", key)
	}
	rc, err := f.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read temp file: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	if !f.allowPrivate {
		if err := CheckURL(rawURL); err != nil {
			return nil, err
		}
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid document url %q", rawURL)
	}
	resp, err := f.http.R().SetContext(ctx).Get(u.String())
	if err != nil {
		if errors.Is(err, resty.ErrResponseBodyTooLarge) {
			return nil, ErrTooLarge
		}
		if errors.Is(err, ErrBlockedAddress) {
			return nil, ErrBlockedAddress
		}
		return nil, fmt.Errorf("download document: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download document: unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// DecodeDataURL decodes an RFC 2397 data URL.
func DecodeDataURL(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "data:") {
		return nil, ErrInvalidDataURL
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return nil, ErrInvalidDataURL
	}
	meta, payload := s[len("data:"):comma], s[comma+1:]
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == ' ' {
				return -1
			}
			return r
		}, payload)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
			}
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return []byte(text), nil
}
