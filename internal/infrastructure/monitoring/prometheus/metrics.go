package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every MallLedger metric.  It satisfies the metrics
// interfaces of the billing generator, the alerting service and the dispatch
// router.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Billing
	InvoicesTotal  CounterVec
	PaymentsTotal  CounterVec
	BatchDuration  HistogramVec

	// Alerting
	FindingsTotal     CounterVec
	ChannelSendsTotal CounterVec

	// Scheduler
	JobRunsTotal    CounterVec
	JobDuration     HistogramVec
	JobLastSuccess  GaugeVec

	// Infrastructure
	CacheRequestsTotal CounterVec
	EventsPublished    CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultJobDurationBuckets  = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600}
)

// NewAppMetrics registers all metrics.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.InvoicesTotal = collector.RegisterCounter("invoices_total", "Invoice generation outcomes", "outcome")
	m.PaymentsTotal = collector.RegisterCounter("payments_total", "Recorded invoice payments", "status")
	m.BatchDuration = collector.RegisterHistogram("invoice_batch_duration_seconds", "Monthly invoice batch duration", DefaultJobDurationBuckets, "scope")

	m.FindingsTotal = collector.RegisterCounter("findings_total", "Scanner findings by write status", "type", "status")
	m.ChannelSendsTotal = collector.RegisterCounter("channel_sends_total", "Messaging channel sends", "channel", "status")

	m.JobRunsTotal = collector.RegisterCounter("job_runs_total", "Scheduled job runs", "job", "status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Scheduled job duration", DefaultJobDurationBuckets, "job")
	m.JobLastSuccess = collector.RegisterGauge("job_last_success_timestamp_seconds", "Unix time of the last successful run", "job")

	m.CacheRequestsTotal = collector.RegisterCounter("cache_requests_total", "Cache lookups", "cache", "result")
	m.EventsPublished = collector.RegisterCounter("events_published_total", "Broker events by topic", "topic", "status")

	return m
}

// RecordInvoiceOutcome counts one store outcome of a generation run.
func (m *AppMetrics) RecordInvoiceOutcome(outcome string) {
	m.InvoicesTotal.WithLabelValues(outcome).Inc()
}

// RecordFinding counts a scanner finding by what the writer did with it.
func (m *AppMetrics) RecordFinding(findingType, status string) {
	m.FindingsTotal.WithLabelValues(findingType, status).Inc()
}

// RecordChannelSend counts one channel attempt.
func (m *AppMetrics) RecordChannelSend(channel, status string) {
	m.ChannelSendsTotal.WithLabelValues(channel, status).Inc()
}

// RecordPayment counts a payment attempt as applied or rejected.
func (m *AppMetrics) RecordPayment(applied bool) {
	m.PaymentsTotal.WithLabelValues(status(applied, "applied", "rejected")).Inc()
}

// RecordHTTPRequest records one served request.  route is the matched
// pattern, never the raw path.
func (m *AppMetrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordJobRun records a scheduled job run.
func (m *AppMetrics) RecordJobRun(job string, err error, duration time.Duration, now time.Time) {
	m.JobRunsTotal.WithLabelValues(job, status(err == nil, "success", "failure")).Inc()
	m.JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err == nil {
		m.JobLastSuccess.WithLabelValues(job).Set(float64(now.Unix()))
	}
}

// RecordJobSkipped counts a run skipped because another worker holds the
// batch lock.
func (m *AppMetrics) RecordJobSkipped(job string) {
	m.JobRunsTotal.WithLabelValues(job, "skipped").Inc()
}

// RecordCacheAccess counts a cache hit or miss.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	m.CacheRequestsTotal.WithLabelValues(cache, status(hit, "hit", "miss")).Inc()
}

// RecordEventPublished counts a broker publish.
func (m *AppMetrics) RecordEventPublished(topic string, err error) {
	m.EventsPublished.WithLabelValues(topic, status(err == nil, "ok", "failed")).Inc()
}

func status(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

//Personal.AI order the ending
