package invindex

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/bcongdon/invindex/index"
)

const metricsNamespace = "invindex"

// reportCollector exports a run Report as Prometheus metrics.
type reportCollector struct {
	report      *Report
	counterDesc map[index.Counter]*prometheus.Desc
	elapsedDesc *prometheus.Desc
	bytesDesc   *prometheus.Desc
}

func newReportCollector(report *Report) *reportCollector {
	c := &reportCollector{
		report:      report,
		counterDesc: make(map[index.Counter]*prometheus.Desc),
		elapsedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "run_duration_seconds"),
			"Wall-clock duration of the indexing run.",
			nil, nil,
		),
		bytesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "bytes_total"),
			"Bytes moved by the indexing run, by direction.",
			[]string{"direction"}, nil,
		),
	}
	for _, counter := range index.AllCounters() {
		c.counterDesc[counter] = prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", strings.ToLower(counter.String())+"_total"),
			counter.Help(),
			nil, nil,
		)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *reportCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, counter := range index.AllCounters() {
		ch <- c.counterDesc[counter]
	}
	ch <- c.elapsedDesc
	ch <- c.bytesDesc
}

// Collect implements prometheus.Collector.
func (c *reportCollector) Collect(ch chan<- prometheus.Metric) {
	for _, counter := range index.AllCounters() {
		ch <- prometheus.MustNewConstMetric(
			c.counterDesc[counter],
			prometheus.CounterValue,
			float64(c.report.Counters.Get(counter)),
		)
	}
	ch <- prometheus.MustNewConstMetric(c.elapsedDesc, prometheus.GaugeValue, c.report.Elapsed.Seconds())
	ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.CounterValue, float64(c.report.BytesRead), "read")
	ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.CounterValue, float64(c.report.BytesWritten), "written")
}

// pushReport sends the report to the Pushgateway at url.
func pushReport(url string, report *Report) error {
	return push.New(url, metricsNamespace).
		Collector(newReportCollector(report)).
		Push()
}
