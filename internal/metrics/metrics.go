package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters. A nil *Metrics is valid and records nothing,
// which keeps tests and tools free of registry setup.
type Metrics struct {
	registry             *prometheus.Registry
	messagesSent         prometheus.Counter
	messagesRead         prometheus.Counter
	conversationsCreated prometheus.Counter
	filesUploaded        prometheus.Counter
	fileDownloads        prometheus.Counter
	filesExpired         prometheus.Counter
	storeSoftFailures    *prometheus.CounterVec
	wsClients            prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsender", Name: "messages_sent_total",
			Help: "Messages appended to a conversation.",
		}),
		messagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsender", Name: "messages_read_total",
			Help: "Messages that received a read receipt.",
		}),
		conversationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsender", Name: "conversations_created_total",
			Help: "Conversations created by get-or-create.",
		}),
		filesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsender", Name: "files_uploaded_total",
			Help: "Shared files registered.",
		}),
		fileDownloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsender", Name: "file_downloads_total",
			Help: "Shared file downloads.",
		}),
		filesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsender", Name: "files_expired_total",
			Help: "Shared files removed by the expiry sweep.",
		}),
		storeSoftFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartsender", Name: "store_soft_failures_total",
			Help: "Collection reads that fell back to the seed value.",
		}, []string{"key", "reason"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "smartsender", Name: "ws_clients",
			Help: "Connected websocket clients.",
		}),
	}
	reg.MustRegister(
		m.messagesSent, m.messagesRead, m.conversationsCreated,
		m.filesUploaded, m.fileDownloads, m.filesExpired,
		m.storeSoftFailures, m.wsClients,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.messagesSent.Inc()
	}
}

func (m *Metrics) MessagesRead(n int) {
	if m != nil && n > 0 {
		m.messagesRead.Add(float64(n))
	}
}

func (m *Metrics) ConversationCreated() {
	if m != nil {
		m.conversationsCreated.Inc()
	}
}

func (m *Metrics) FileUploaded() {
	if m != nil {
		m.filesUploaded.Inc()
	}
}

func (m *Metrics) FileDownloaded() {
	if m != nil {
		m.fileDownloads.Inc()
	}
}

func (m *Metrics) FilesExpired(n int) {
	if m != nil && n > 0 {
		m.filesExpired.Add(float64(n))
	}
}

func (m *Metrics) StoreSoftFailure(key, reason string) {
	if m != nil {
		m.storeSoftFailures.WithLabelValues(key, reason).Inc()
	}
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}
