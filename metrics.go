package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cwsl/ubersstv/sstv"
)

// PrometheusMetrics holds all Prometheus metric collectors for the
// encode/decode pipeline
type PrometheusMetrics struct {
	decodesTotal   *prometheus.CounterVec // by mode and quality verdict
	decodeDuration prometheus.Histogram
	decodeOffset   prometheus.Histogram
	encodesTotal   *prometheus.CounterVec // by mode
	rtpPackets     prometheus.Counter
	rtpSessions    prometheus.Gauge
	wsSessions     prometheus.Gauge
}

// NewPrometheusMetrics registers all collectors with the default
// registry
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		decodesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ubersstv_decodes_total",
			Help: "Completed SSTV decodes by mode and quality verdict",
		}, []string{"mode", "verdict"}),
		decodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ubersstv_decode_duration_seconds",
			Help:    "Wall-clock time per SSTV decode",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		decodeOffset: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ubersstv_decode_freq_offset_hz",
			Help:    "Detected transmitter frequency offset per decode",
			Buckets: prometheus.LinearBuckets(-250, 50, 11),
		}),
		encodesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ubersstv_encodes_total",
			Help: "Completed SSTV encodes by mode",
		}, []string{"mode"}),
		rtpPackets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ubersstv_rtp_packets_total",
			Help: "RTP packets accepted by the PCM listener",
		}),
		rtpSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ubersstv_rtp_sessions",
			Help: "Active RTP decode sessions (distinct SSRCs)",
		}),
		wsSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ubersstv_ws_sessions",
			Help: "Connected live-decode websocket clients",
		}),
	}
}

// ObserveDecode records a completed decode
func (m *PrometheusMetrics) ObserveDecode(res *sstv.Result) {
	if m == nil || res == nil {
		return
	}
	m.decodesTotal.WithLabelValues(res.Diagnostics.ModeKey, res.Diagnostics.Quality.Verdict).Inc()
	m.decodeDuration.Observe(res.Diagnostics.DecodeTime)
	m.decodeOffset.Observe(res.Diagnostics.FreqOffset)
}

// ObserveEncode records a completed encode
func (m *PrometheusMetrics) ObserveEncode(modeKey string) {
	if m == nil {
		return
	}
	m.encodesTotal.WithLabelValues(modeKey).Inc()
}
