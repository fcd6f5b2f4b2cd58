package metrics

import (
	"net/http"
	"time"

	"github.com/brojonat/lnbits/client"
)

// InstrumentedTransport records LNbits API request metrics for every request
// sent through it. Requests issued by client.Client are labelled with their
// operation name; anything else is labelled "other".
type InstrumentedTransport struct {
	Base    http.RoundTripper
	Metrics *Metrics
}

// NewInstrumentedTransport wraps base, or http.DefaultTransport when base is nil.
func NewInstrumentedTransport(base http.RoundTripper, m *Metrics) *InstrumentedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &InstrumentedTransport{Base: base, Metrics: m}
}

// RoundTrip implements http.RoundTripper.
func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	operation := client.OperationFromRequest(req)
	if operation == "" {
		operation = "other"
	}

	start := time.Now()
	resp, err := t.Base.RoundTrip(req)
	if t.Metrics == nil {
		return resp, err
	}

	if err != nil {
		t.Metrics.RecordAPITransportError(operation)
		return resp, err
	}

	t.Metrics.RecordAPIRequest(operation, req.Method, resp.StatusCode, time.Since(start).Seconds())
	return resp, nil
}

// Timer is a helper for timing operations.
// Usage:
//
//	defer Timer(time.Now(), func(duration float64) {
//	    metrics.RecordSomething(duration)
//	})()
func Timer(start time.Time, recordFunc func(float64)) func() {
	return func() {
		recordFunc(time.Since(start).Seconds())
	}
}
