package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	toolActivationTotal    *prometheus.CounterVec
	toolActivationDuration *prometheus.HistogramVec
	registeredTools        prometheus.Gauge

	extensionCallTotal *prometheus.CounterVec

	protocolMessageTotal *prometheus.CounterVec
	connectedPeers       prometheus.Gauge

	themeSaveTotal *prometheus.CounterVec
	themeLoadTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			toolActivationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lens_tool_activation_total",
					Help: "Total tool activations by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolActivationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "lens_tool_activation_duration_seconds",
					Help:    "Tool callback duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			registeredTools: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "lens_registered_tools",
					Help: "Current number of registered tools.",
				},
			),
			extensionCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lens_extension_call_total",
					Help: "Total extension calls by status.",
				},
				[]string{"status"},
			),
			protocolMessageTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lens_protocol_message_total",
					Help: "Total protocol messages handled by role, tag and status.",
				},
				[]string{"role", "tag", "status"},
			),
			connectedPeers: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "lens_connected_peers",
					Help: "Current connected peer count.",
				},
			),
			themeSaveTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lens_theme_save_total",
					Help: "Total theme saves by status.",
				},
				[]string{"status"},
			),
			themeLoadTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lens_theme_load_total",
					Help: "Total theme loads by outcome (restored, defaults, error).",
				},
				[]string{"outcome"},
			),
		}

		prometheus.MustRegister(
			m.toolActivationTotal,
			m.toolActivationDuration,
			m.registeredTools,
			m.extensionCallTotal,
			m.protocolMessageTotal,
			m.connectedPeers,
			m.themeSaveTotal,
			m.themeLoadTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func RecordToolActivation(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	m.toolActivationTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	m.toolActivationDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordToolDenied(tool string) {
	m := getMetrics()
	m.toolActivationTotal.WithLabelValues(tool, "denied").Inc()
}

func SetRegisteredTools(count int) {
	m := getMetrics()
	m.registeredTools.Set(float64(count))
}

func RecordExtensionCall(success bool) {
	m := getMetrics()
	m.extensionCallTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordProtocolMessage counts a handled message. status is one of
// "applied", "rejected", "ignored" or "error".
func RecordProtocolMessage(role, tag, status string) {
	m := getMetrics()
	m.protocolMessageTotal.WithLabelValues(role, tag, status).Inc()
}

func SetConnectedPeers(count int) {
	m := getMetrics()
	m.connectedPeers.Set(float64(count))
}

func RecordThemeSave(success bool) {
	m := getMetrics()
	m.themeSaveTotal.WithLabelValues(statusLabel(success)).Inc()
}

func RecordThemeLoad(outcome string) {
	m := getMetrics()
	m.themeLoadTotal.WithLabelValues(outcome).Inc()
}
