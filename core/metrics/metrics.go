// Package metrics defines the Prometheus collectors exported by the broker.
//
// All recording methods are safe to call on a nil *Metrics, so components can
// take metrics as an optional dependency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "messenger"

// Termination reasons used as the "reason" label.
const (
	ReasonDisconnect = "disconnect"
	ReasonTimeout    = "timeout"
	ReasonClosed     = "closed"
	ReasonProtocol   = "protocol"
	ReasonIO         = "io"
	ReasonBusClosed  = "bus_closed"
	ReasonShutdown   = "shutdown"
)

// Metrics groups the broker collectors.
type Metrics struct {
	ConnectionsActive   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	Terminations        *prometheus.CounterVec
	MessagesPublished   prometheus.Counter
	MessagesDelivered   prometheus.Counter
	MessagesSkipped     prometheus.Counter
	ControlMessages     *prometheus.CounterVec
	AcceptErrors        prometheus.Counter
	Subscriptions       prometheus.Gauge
	PublishedBytesTotal prometheus.Counter
}

// New registers the broker collectors with reg.
// Pass prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently connected clients",
		}),
		ConnectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total accepted client connections",
		}),
		Terminations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_terminations_total",
			Help:      "Connection terminations by reason",
		}, []string{"reason"}),
		MessagesPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Messages published to the broadcast bus",
		}),
		MessagesDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages written to subscribed clients",
		}),
		MessagesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_skipped_total",
			Help:      "Messages dropped for lagging subscribers",
		}),
		ControlMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_messages_total",
			Help:      "Control messages handled by command",
		}, []string{"command"}),
		AcceptErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Errors returned by the listener accept loop",
		}),
		Subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Topic subscriptions held across all connections",
		}),
		PublishedBytesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_payload_bytes_total",
			Help:      "Payload bytes published to the broadcast bus",
		}),
	}
}

// ConnectionOpened records an accepted connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

// ConnectionClosed records a terminated connection and its subscription count.
func (m *Metrics) ConnectionClosed(reason string, subscriptions int) {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
	m.Terminations.WithLabelValues(reason).Inc()
	m.Subscriptions.Sub(float64(subscriptions))
}

// Published records a message handed to the bus.
func (m *Metrics) Published(payloadSize int) {
	if m == nil {
		return
	}
	m.MessagesPublished.Inc()
	m.PublishedBytesTotal.Add(float64(payloadSize))
}

// Delivered records a message written to a subscriber.
func (m *Metrics) Delivered() {
	if m == nil {
		return
	}
	m.MessagesDelivered.Inc()
}

// Skipped records messages lost by a lagging subscriber.
func (m *Metrics) Skipped(n uint64) {
	if m == nil {
		return
	}
	m.MessagesSkipped.Add(float64(n))
}

// Control records a handled control command.
func (m *Metrics) Control(command string) {
	if m == nil {
		return
	}
	m.ControlMessages.WithLabelValues(command).Inc()
}

// SubscriptionsChanged adjusts the subscription gauge by delta.
func (m *Metrics) SubscriptionsChanged(delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.Subscriptions.Add(float64(delta))
}

// AcceptError records a failed accept.
func (m *Metrics) AcceptError() {
	if m == nil {
		return
	}
	m.AcceptErrors.Inc()
}
