// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers     prometheus.Gauge
	ActiveLobbies     prometheus.Gauge
	ActiveGames       prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	MessageLatency    prometheus.Histogram
	BroadcastFailures prometheus.Counter
	AnswersSubmitted  *prometheus.CounterVec
	Eliminations      prometheus.Counter
	GamesFinished     *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of open player connections",
		}),
		ActiveLobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_lobbies",
			Help:      "Number of registered lobbies",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of running game sessions",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of client commands received",
		}, []string{"command"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Command processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		BroadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_failures_total",
			Help:      "Deliveries that failed for a single recipient",
		}),
		AnswersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Answers evaluated by the active minigame",
		}, []string{"result"}),
		Eliminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eliminations_total",
			Help:      "Players eliminated by logic checks",
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Finished game sessions by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveLobbies,
		m.ActiveGames,
		m.MessagesReceived,
		m.MessageLatency,
		m.BroadcastFailures,
		m.AnswersSubmitted,
		m.Eliminations,
		m.GamesFinished,
	)

	return m
}

// Monitor wraps Metrics. A nil *Monitor is valid and records nothing, so
// components can be built without metrics in tests.
type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// expvar names are process-global; only the first monitor publishes them.
var expvarOnce sync.Once

// NewMonitor registers metrics on the default Prometheus registry.
func NewMonitor(namespace string) *Monitor {
	return NewMonitorWithRegistry(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func NewMonitorWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  gatherer,
		startTime: time.Now(),
	}
}

// Handler serves the Prometheus exposition format and publishes uptime and
// request counters through expvar.
func (m *Monitor) Handler() http.Handler {
	expvarOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Monitor) IncOnlinePlayers() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveLobbies(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveLobbies.Set(float64(count))
}

func (m *Monitor) GameStarted() {
	if m == nil {
		return
	}
	m.metrics.ActiveGames.Inc()
}

func (m *Monitor) GameFinished(outcome string) {
	if m == nil {
		return
	}
	m.metrics.ActiveGames.Dec()
	m.metrics.GamesFinished.WithLabelValues(outcome).Inc()
}

func (m *Monitor) IncMessagesReceived(command string) {
	if m == nil {
		return
	}
	m.metrics.MessagesReceived.WithLabelValues(command).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) AddBroadcastFailures(n int) {
	if m == nil || n == 0 {
		return
	}
	m.metrics.BroadcastFailures.Add(float64(n))
}

func (m *Monitor) ObserveAnswer(correct bool) {
	if m == nil {
		return
	}
	result := "wrong"
	if correct {
		result = "correct"
	}
	m.metrics.AnswersSubmitted.WithLabelValues(result).Inc()
}

func (m *Monitor) AddEliminations(n int) {
	if m == nil || n == 0 {
		return
	}
	m.metrics.Eliminations.Add(float64(n))
}
