package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the schedule service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	commits   prometheus.Counter
	saves     *prometheus.CounterVec
	poweredOn *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. If reg is nil a fresh registry is used.
// Collectors that are already registered are reused.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_http_requests_total",
		Help: "HTTP requests served, by method, route and status",
	}, []string{"method", "route", "status"})
	commits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_editor_commits_total",
		Help: "Drag edits committed by live editor sessions",
	})
	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_saves_total",
		Help: "Schedule writes, by operation",
	}, []string{"op"})
	poweredOn := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedule_powered_on",
		Help: "1 if the schedule currently asks for power, else 0",
	}, []string{"schedule_id"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if commits, err = register(reg, commits); err != nil {
		return nil, err
	}
	if saves, err = register(reg, saves); err != nil {
		return nil, err
	}
	if poweredOn, err = register(reg, poweredOn); err != nil {
		return nil, err
	}

	return &Metrics{
		requests:  requests,
		commits:   commits,
		saves:     saves,
		poweredOn: poweredOn,
		gatherer:  reg,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) EditorCommit() {
	if m == nil {
		return
	}
	m.commits.Inc()
}

// ScheduleSaved counts a write; op is create, update or delete.
func (m *Metrics) ScheduleSaved(op string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(op).Inc()
}

// SetPowered records the power of a schedule. The series is keyed by id so
// renames do not leave stale series behind.
func (m *Metrics) SetPowered(scheduleID int, on bool) {
	if m == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	m.poweredOn.WithLabelValues(strconv.Itoa(scheduleID)).Set(v)
}

// ForgetSchedule drops the power gauge of a deleted schedule.
func (m *Metrics) ForgetSchedule(scheduleID int) {
	if m == nil {
		return
	}
	m.poweredOn.DeleteLabelValues(strconv.Itoa(scheduleID))
}
