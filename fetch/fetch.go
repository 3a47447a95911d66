// Package fetch loads resources by URL. Handlers are selected by URL scheme,
// so data may come from local files, bundled filesystems or HTTP alike.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrMethodNotAllowed = errors.New("method is not supported by protocol")

// Request describes single fetch.
type Request struct {
	Method string
	URL    *url.URL
}

// Response is a fully read fetch result.
type Response struct {
	URL         *url.URL
	Status      int
	ContentType string

	body []byte
}

// OK reports 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Bytes returns response body.
func (r *Response) Bytes() []byte {
	return r.body
}

// Text returns response body as string.
func (r *Response) Text() string {
	return string(r.body)
}

// JSON decodes response body into v.
func (r *Response) JSON(v any) error {
	if err := json.NewDecoder(bytes.NewReader(r.body)).Decode(v); err != nil {
		return fmt.Errorf("unable to decode json from '%s': %w", r.URL, err)
	}
	return nil
}

// Blob returns response body together with its media type.
func (r *Response) Blob() Blob {
	return Blob{Type: r.ContentType, Data: r.body}
}

// Blob is binary data with media type.
type Blob struct {
	Type string
	Data []byte
}

// DataURL encodes blob as "data:<type>;base64,<data>".
func (b Blob) DataURL() string {
	return "data:" + b.Type + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// Handler serves requests for a single protocol.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Fetcher dispatches requests to handlers by URL scheme. Requests for
// schemes without handler go to the default one (HTTP unless replaced).
type Fetcher struct {
	mu        sync.RWMutex
	protocols map[string]Handler
	fallback  Handler
	base      *url.URL

	log *zap.Logger
}

// Option customizes Fetcher.
type Option func(*Fetcher)

// WithDefault replaces handler used for unregistered protocols.
func WithDefault(h Handler) Option {
	return func(f *Fetcher) {
		f.fallback = h
	}
}

// WithProtocol registers handler at construction time.
func WithProtocol(protocol string, h Handler) Option {
	return func(f *Fetcher) {
		f.protocols[normalizeProtocol(protocol)] = h
	}
}

// New creates fetcher resolving relative references against base. Empty
// base means current working directory. "file:" protocol is always
// registered.
func New(base string, log *zap.Logger, options ...Option) (*Fetcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("fetch")

	baseURL, err := parseBase(base)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		protocols: make(map[string]Handler),
		base:      baseURL,
		log:       log,
	}
	f.protocols["file"] = FileHandler(log)
	f.fallback = HTTPHandler(nil, log)
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// Register installs handler for protocol ("file:", "embed" and "EMBED:" are
// all fine), replacing any previous one.
func (f *Fetcher) Register(protocol string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.protocols[normalizeProtocol(protocol)] = h
}

// Base returns base URL.
func (f *Fetcher) Base() *url.URL {
	u := *f.base
	return &u
}

// Resolve resolves uri against from, or against fetcher base when from is
// empty.
func (f *Fetcher) Resolve(uri, from string) (*url.URL, error) {
	base := f.base
	if from != "" {
		var err error
		if base, err = parseBase(from); err != nil {
			return nil, err
		}
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("unable to parse url '%s': %w", uri, err)
	}
	return base.ResolveReference(ref), nil
}

// Do resolves uri and sends request to the handler of its protocol.
func (f *Fetcher) Do(ctx context.Context, method, uri string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := f.Resolve(uri, "")
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = "GET"
	}

	f.mu.RLock()
	h, ok := f.protocols[strings.ToLower(u.Scheme)]
	if !ok {
		h = f.fallback
	}
	f.mu.RUnlock()

	f.log.Debug("Fetching", zap.String("method", method), zap.Stringer("url", u), zap.Bool("registered", ok))
	resp, err := h(ctx, &Request{Method: strings.ToUpper(method), URL: u})
	if err != nil {
		return nil, fmt.Errorf("unable to fetch '%s': %w", u, err)
	}
	return resp, nil
}

// Get is Do with GET method, non 2xx responses are reported as errors.
func (f *Fetcher) Get(ctx context.Context, uri string) (*Response, error) {
	resp, err := f.Do(ctx, "GET", uri)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("unable to fetch '%s': status %d", resp.URL, resp.Status)
	}
	return resp, nil
}

// JSON fetches uri and decodes it into v.
func (f *Fetcher) JSON(ctx context.Context, uri string, v any) error {
	resp, err := f.Get(ctx, uri)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

// Blob fetches uri as binary data.
func (f *Fetcher) Blob(ctx context.Context, uri string) (Blob, error) {
	resp, err := f.Get(ctx, uri)
	if err != nil {
		return Blob{}, err
	}
	return resp.Blob(), nil
}

// DataURL fetches uri and returns it encoded as data URL.
func (f *Fetcher) DataURL(ctx context.Context, uri string) (string, error) {
	b, err := f.Blob(ctx, uri)
	if err != nil {
		return "", err
	}
	return b.DataURL(), nil
}

func normalizeProtocol(p string) string {
	return strings.ToLower(strings.TrimSuffix(p, ":"))
}
