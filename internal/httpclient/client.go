package httpclient

import (
	"net/http"
	"time"

	"mythmanga/internal/logger"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Upstream names used in logs and span names.
const (
	UpstreamPaymentGateway = "payment_gateway"
	UpstreamMail           = "mail"
)

// UpstreamRoundTripper logs each call to an upstream by host and path. Query
// strings are left out of the logs.
type UpstreamRoundTripper struct {
	Upstream string
	Next     http.RoundTripper
}

func (u *UpstreamRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	log := logger.For("upstream").With(
		zap.String("upstream", u.Upstream),
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
	)
	if key := req.Header.Get("Idempotency-Key"); key != "" {
		log = log.With(zap.String("attempt_id", key))
	}

	start := time.Now()
	resp, err := u.Next.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Warn("Upstream unreachable", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Warn("Upstream error response", zap.Int("status_code", resp.StatusCode), zap.Duration("elapsed", elapsed))
	} else {
		log.Debug("Upstream call", zap.Int("status_code", resp.StatusCode), zap.Duration("elapsed", elapsed))
	}
	return resp, nil
}

// NewClient returns an http.Client for one upstream, traced with otelhttp and
// logged by UpstreamRoundTripper.
func NewClient(upstream string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(
			&UpstreamRoundTripper{Upstream: upstream, Next: http.DefaultTransport},
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return upstream + " " + r.Method + " " + r.URL.Path
			}),
		),
		Timeout: timeout,
	}
}
