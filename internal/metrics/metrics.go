package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "board"

var (
	// ConnectionsActive — живые аутентифицированные ws-соединения
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Number of registered websocket connections",
		},
	)

	// AuthFailures — отклонённые при подключении токены по причине
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_auth_failures_total",
			Help:      "Websocket handshakes rejected by the session authenticator",
		},
		[]string{"reason"},
	)

	// Frames — входящие кадры по типу и результату (ok|dropped|storage_error)
	Frames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_frames_total",
			Help:      "Inbound websocket frames by type and result",
		},
		[]string{"type", "result"},
	)

	FrameDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ws_frame_duration_seconds",
			Help:      "Time spent handling one inbound frame including persistence",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// Deliveries — результаты отправки участникам комнаты (sent|failed)
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Per-member fan-out deliveries by result",
		},
		[]string{"result"},
	)

	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Frames exchanged with other instances through the relay",
		},
		[]string{"direction", "result"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed persistence operations by operation name",
		},
		[]string{"op"},
	)

	// BreakerState — 0 closed, 1 half-open, 2 open
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_breaker_state",
			Help:      "State of the storage circuit breaker",
		},
		[]string{"name"},
	)

	GRPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "Time spent processing gRPC requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "code"},
	)
)
