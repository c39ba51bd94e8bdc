package gateway

import (
	"context"
	"encoding/json"
	"errors"
	stdlog "log"
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcore/hospital-gateway/internal/api/metrics"
)

const defaultUpstreamTimeout = 30 * time.Second

// Forwarder relays requests to backends. There is one reverse proxy per
// binding, all sharing one transport.
type Forwarder struct {
	proxies map[string]*httputil.ReverseProxy
	timeout time.Duration
	log     zerolog.Logger
}

// NewForwarder builds a proxy for every route in table. A nil transport uses
// a clone of http.DefaultTransport.
func NewForwarder(table *RouteTable, timeout time.Duration, transport http.RoundTripper, log zerolog.Logger) *Forwarder {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	f := &Forwarder{
		proxies: make(map[string]*httputil.ReverseProxy),
		timeout: timeout,
		log:     log,
	}
	for _, r := range table.Routes() {
		if _, ok := f.proxies[r.Name]; ok {
			continue
		}
		f.proxies[r.Name] = f.newProxy(r, transport)
	}
	return f
}

func (f *Forwarder) newProxy(route Route, transport http.RoundTripper) *httputil.ReverseProxy {
	target := route.Target
	name := route.Name

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorLog:  stdlog.New(f.log, "", 0),
		ModifyResponse: func(resp *http.Response) error {
			// The gateway owns the CORS policy.
			for key := range resp.Header {
				if strings.HasPrefix(key, "Access-Control-") {
					resp.Header.Del(key)
				}
			}
			metrics.ForwardedRequestsTotal.WithLabelValues(name, strconv.Itoa(resp.StatusCode)).Inc()
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			f.handleError(w, r, name, err)
		},
	}
}

// Forward sends r to the backend behind route and relays its response. The
// outbound request is cancelled when the caller goes away or the upstream
// timeout elapses.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, route Route) {
	proxy, ok := f.proxies[route.Name]
	if !ok {
		writeError(w, http.StatusNotFound, "no route for path")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), f.timeout)
	defer cancel()

	start := time.Now()
	proxy.ServeHTTP(w, r.WithContext(ctx))
	metrics.UpstreamDuration.WithLabelValues(route.Name).Observe(time.Since(start).Seconds())
}

func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, route string, err error) {
	ctxErr := r.Context().Err()
	var netErr net.Error

	switch {
	case errors.Is(ctxErr, context.Canceled):
		metrics.UpstreamErrorsTotal.WithLabelValues(route, "canceled").Inc()
		f.log.Debug().Str("route", route).Str("path", r.URL.Path).Msg("caller went away, forward abandoned")
	case errors.Is(ctxErr, context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		metrics.UpstreamErrorsTotal.WithLabelValues(route, "timeout").Inc()
		metrics.ForwardedRequestsTotal.WithLabelValues(route, strconv.Itoa(http.StatusGatewayTimeout)).Inc()
		f.log.Warn().Err(err).Str("route", route).Str("path", r.URL.Path).Msg("upstream timeout")
		writeError(w, http.StatusGatewayTimeout, "upstream timeout")
	default:
		metrics.UpstreamErrorsTotal.WithLabelValues(route, "unreachable").Inc()
		metrics.ForwardedRequestsTotal.WithLabelValues(route, strconv.Itoa(http.StatusBadGateway)).Inc()
		f.log.Error().Err(err).Str("route", route).Str("path", r.URL.Path).Msg("upstream unreachable")
		writeError(w, http.StatusBadGateway, "upstream unavailable")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
