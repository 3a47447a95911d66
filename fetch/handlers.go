package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileHandler serves "file:" URLs from local filesystem. Only GET is
// supported.
func FileHandler(log *zap.Logger) Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req *Request) (*Response, error) {
		if req.Method != "GET" {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Scheme, ErrMethodNotAllowed)
		}
		p := req.URL.Path
		if len(p) > 2 && p[0] == '/' && p[2] == ':' {
			// "/C:/dir" on windows
			p = p[1:]
		}
		name := filepath.FromSlash(p)
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("unable to read file: %w", err)
		}
		log.Debug("Read file", zap.String("path", name), zap.Int("bytes", len(data)))
		return &Response{
			URL:         req.URL,
			Status:      http.StatusOK,
			ContentType: DetectType(name, data),
			body:        data,
		}, nil
	}
}

// FSHandler serves URLs out of fsys, normally bundled with the program via
// embed. Host and path of the URL together form the name inside fsys, so
// "embed:data/x.json" and "embed:///data/x.json" address the same file.
// Missing files produce 404 responses rather than errors.
func FSHandler(fsys fs.FS) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if req.Method != "GET" {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Scheme, ErrMethodNotAllowed)
		}
		name := strings.TrimPrefix(path.Clean("/"+path.Join(req.URL.Host, fsPath(req.URL))), "/")
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			return &Response{URL: req.URL, Status: http.StatusNotFound}, nil
		}
		if err != nil {
			return nil, err
		}
		return &Response{
			URL:         req.URL,
			Status:      http.StatusOK,
			ContentType: DetectType(name, data),
			body:        data,
		}, nil
	}
}

// fsPath returns path of opaque ("embed:data/x.json") and hierarchical URLs
// alike.
func fsPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Path
}

// HTTPHandler serves requests with client, http.DefaultClient when nil.
func HTTPHandler(client *http.Client, log *zap.Logger) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req *Request) (*Response, error) {
		hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
		if err != nil {
			return nil, err
		}
		hresp, err := client.Do(hreq)
		if err != nil {
			return nil, err
		}
		defer hresp.Body.Close()

		data, err := io.ReadAll(hresp.Body)
		if err != nil {
			return nil, fmt.Errorf("unable to read response body: %w", err)
		}
		ct := hresp.Header.Get("Content-Type")
		if ct == "" {
			ct = DetectType(req.URL.Path, data)
		}
		log.Debug("HTTP response", zap.Stringer("url", req.URL), zap.Int("status", hresp.StatusCode), zap.String("type", ct))
		return &Response{
			URL:         req.URL,
			Status:      hresp.StatusCode,
			ContentType: ct,
			body:        data,
		}, nil
	}
}

// parseBase turns base reference into absolute URL. Plain filesystem paths
// become file URLs, directories get trailing slash so relative references
// resolve inside them.
func parseBase(base string) (*url.URL, error) {
	if base == "" {
		base = "."
	}
	if u, err := url.Parse(base); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return u, nil
	}

	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve base '%s': %w", base, err)
	}
	p := filepath.ToSlash(abs)
	if fi, err := os.Stat(abs); (err == nil && fi.IsDir()) || strings.HasSuffix(base, "/") {
		p = strings.TrimSuffix(p, "/") + "/"
	}
	if !strings.HasPrefix(p, "/") {
		// windows drive letter
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}, nil
}
