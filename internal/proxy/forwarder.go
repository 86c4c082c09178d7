package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"delivery-portal/internal/metrics"
	"delivery-portal/internal/model"
)

// Forwarder relays /api/* calls to the backend API unchanged apart from the
// Host header and the mount prefix.
type Forwarder struct {
	backend *url.URL
	prefix  string
	proxy   *httputil.ReverseProxy
	metrics metrics.Recorder
}

type Options struct {
	BackendURL string
	// Prefix is removed from the inbound path before forwarding.
	Prefix                string
	ResponseHeaderTimeout time.Duration
	Transport             http.RoundTripper
	Metrics               metrics.Recorder
}

func New(opts Options) (*Forwarder, error) {
	backend, err := url.Parse(strings.TrimRight(opts.BackendURL, "/"))
	if err != nil || backend.Scheme == "" || backend.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", opts.BackendURL)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop
	}
	if opts.Transport == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.ResponseHeaderTimeout > 0 {
			transport.ResponseHeaderTimeout = opts.ResponseHeaderTimeout
		}
		opts.Transport = transport
	}

	f := &Forwarder{
		backend: backend,
		prefix:  strings.TrimRight(opts.Prefix, "/"),
		metrics: opts.Metrics,
	}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:      f.rewrite,
		Transport:    opts.Transport,
		ErrorHandler: f.handleError,
	}
	return f, nil
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	f.proxy.ServeHTTP(sw, r)

	f.metrics.RecordProxyRequest(r.Method, sw.status, time.Since(started))
}

func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	path := strings.TrimPrefix(pr.In.URL.Path, f.prefix)
	if path == "" {
		path = "/"
	}

	target := *f.backend
	target.Path = strings.TrimRight(f.backend.Path, "/") + path
	target.RawPath = ""
	target.RawQuery = ""

	pr.Out.URL.Scheme = target.Scheme
	pr.Out.URL.Host = target.Host
	pr.Out.URL.Path = target.Path
	pr.Out.URL.RawPath = ""
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	pr.Out.Host = ""
	pr.SetXForwarded()
}

func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// The caller went away; nobody is left to read a body.
		w.WriteHeader(499)
		return
	}

	slog.Error("backend request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"backend", f.backend.Host,
		"error", err,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(model.ProxyError{Error: failureMessage(r.Method)})
}

func failureMessage(method string) string {
	switch method {
	case http.MethodPost:
		return "Failed to send data to API"
	case http.MethodPut:
		return "Failed to update data in API"
	case http.MethodDelete:
		return "Failed to delete data in API"
	default:
		return "Failed to fetch data from API"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(status int) {
	if !sw.wroteHeader {
		sw.status = status
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Flush() {
	if flusher, ok := sw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
