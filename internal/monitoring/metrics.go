package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type LoanMetrics struct {
	PaymentsTotal     *prometheus.CounterVec
	TransitionsTotal  *prometheus.CounterVec
	LoansClosedTotal  *prometheus.CounterVec
	LoansReopened     prometheus.Counter
	ReconcileDuration prometheus.Histogram
	ReconcileLoans    *prometheus.CounterVec
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "microloan_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	Loans = LoanMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_payments_total",
				Help: "Payment operations by kind and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		TransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_status_transitions_total",
				Help: "Committed loan status changes.",
			},
			[]string{"from", "to"},
		),
		LoansClosedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_loans_closed_total",
				Help: "Loans closed by reconciliation, by triggering operation.",
			},
			[]string{"trigger"},
		),
		LoansReopened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "microloan_loans_reopened_total",
				Help: "Closed loans moved back to released.",
			},
		),
		ReconcileDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "microloan_reconcile_duration_seconds",
				Help:    "Duration of a full reconciliation sweep.",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
			},
		),
		ReconcileLoans: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microloan_reconcile_loans_total",
				Help: "Loans visited by reconciliation sweeps, by result.",
			},
			[]string{"result"},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordPayment(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	Loans.PaymentsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordTransition(from, to string) {
	Loans.TransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordClosed(trigger string) {
	Loans.LoansClosedTotal.WithLabelValues(trigger).Inc()
}

func RecordReopened() {
	Loans.LoansReopened.Inc()
}

func RecordReconcile(duration time.Duration, closed, failed, visited int) {
	Loans.ReconcileDuration.Observe(duration.Seconds())
	Loans.ReconcileLoans.WithLabelValues("closed").Add(float64(closed))
	Loans.ReconcileLoans.WithLabelValues("failed").Add(float64(failed))
	Loans.ReconcileLoans.WithLabelValues("unchanged").Add(float64(visited - closed - failed))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latencies labelled by route template
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
	})
}
