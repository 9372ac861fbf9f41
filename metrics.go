package mqtt

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional set of Prometheus collectors a Session updates as
// it sends and receives packets. Metrics are opt-in: Session.Metrics is nil
// unless the caller assigns one, and a Session with a nil Metrics updates
// no collectors.
type Metrics struct {
	PacketsSent       prometheus.Counter
	PacketsReceived   prometheus.Counter
	BytesSent         prometheus.Counter
	BytesReceived     prometheus.Counter
	Retransmissions   prometheus.Counter
	TypicalRespTimeMs prometheus.Gauge
}

// NewMetrics builds a Metrics with one collector per field, labeled with
// clientID so multiple sessions in one process register distinct series.
func NewMetrics(clientID string) *Metrics {
	constLabels := prometheus.Labels{"client_id": clientID}
	return &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqttc", Name: "packets_sent_total", ConstLabels: constLabels,
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqttc", Name: "packets_received_total", ConstLabels: constLabels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqttc", Name: "bytes_sent_total", ConstLabels: constLabels,
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqttc", Name: "bytes_received_total", ConstLabels: constLabels,
		}),
		Retransmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqttc", Name: "retransmissions_total", ConstLabels: constLabels,
		}),
		TypicalRespTimeMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mqttc", Name: "typical_response_time_ms", ConstLabels: constLabels,
		}),
	}
}

// Register registers every collector in m with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.PacketsSent, m.PacketsReceived, m.BytesSent, m.BytesReceived,
		m.Retransmissions, m.TypicalRespTimeMs,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
