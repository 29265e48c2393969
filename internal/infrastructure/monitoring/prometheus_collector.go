package monitoring

import (
	"strconv"
	"time"

	"coursebundler/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Accounts
	usersRegisteredTotal prometheus.Counter
	loginsTotal          *prometheus.CounterVec

	// Catalog
	coursesCreatedTotal prometheus.Counter
	lecturesTotal       *prometheus.CounterVec
	courseViewsTotal    prometheus.Counter

	subscriptionEventsTotal *prometheus.CounterVec
	emailsSentTotal         *prometheus.CounterVec

	// Dashboard
	statsUsers            prometheus.Gauge
	statsSubscriptions    prometheus.Gauge
	statsViews            prometheus.Gauge
	statsRecomputeSeconds prometheus.Histogram
}

// NewPrometheusCollector registers every collector on reg. Tests pass a fresh
// registry; the binary passes prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coursebundler_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursebundler_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),

		usersRegisteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coursebundler_users_registered_total",
			Help: "Accounts created",
		}),

		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coursebundler_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"result"}),

		coursesCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coursebundler_courses_created_total",
			Help: "Courses created",
		}),

		lecturesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coursebundler_lectures_total",
			Help: "Lecture additions and deletions",
		}, []string{"op"}),

		courseViewsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coursebundler_course_views_total",
			Help: "Lecture list reads counted as course views",
		}),

		subscriptionEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coursebundler_subscription_events_total",
			Help: "Subscription lifecycle events",
		}, []string{"event"}),

		emailsSentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coursebundler_emails_sent_total",
			Help: "Outbound mail by kind and outcome",
		}, []string{"kind", "result"}),

		statsUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coursebundler_stats_users",
			Help: "User count in the latest stats snapshot",
		}),

		statsSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coursebundler_stats_subscriptions",
			Help: "Active subscriptions in the latest stats snapshot",
		}),

		statsViews: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coursebundler_stats_views",
			Help: "Total course views in the latest stats snapshot",
		}),

		statsRecomputeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursebundler_stats_recompute_duration_seconds",
			Help:    "Time spent recomputing dashboard stats",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordUserRegistered() {
	p.usersRegisteredTotal.Inc()
}

func (p *PrometheusCollector) RecordLogin(success bool) {
	p.loginsTotal.WithLabelValues(outcome(success)).Inc()
}

func (p *PrometheusCollector) RecordCourseCreated() {
	p.coursesCreatedTotal.Inc()
}

func (p *PrometheusCollector) RecordLectureAdded() {
	p.lecturesTotal.WithLabelValues("added").Inc()
}

func (p *PrometheusCollector) RecordLectureDeleted() {
	p.lecturesTotal.WithLabelValues("deleted").Inc()
}

func (p *PrometheusCollector) RecordCourseViewed() {
	p.courseViewsTotal.Inc()
}

func (p *PrometheusCollector) RecordSubscriptionEvent(event string) {
	p.subscriptionEventsTotal.WithLabelValues(event).Inc()
}

func (p *PrometheusCollector) RecordEmailSent(kind string, err error) {
	p.emailsSentTotal.WithLabelValues(kind, outcome(err == nil)).Inc()
}

func (p *PrometheusCollector) RecordStatsRecomputed(snapshot *domain.StatsSnapshot, duration time.Duration) {
	p.statsRecomputeSeconds.Observe(duration.Seconds())
	if snapshot == nil {
		return
	}
	p.statsUsers.Set(float64(snapshot.Users))
	p.statsSubscriptions.Set(float64(snapshot.Subscription))
	p.statsViews.Set(float64(snapshot.Views))
}
