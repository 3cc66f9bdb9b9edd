package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)

	// Habit 写操作计数
	HabitWriteCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_write_total",
			Help: "Habit write operations by kind and outcome",
		},
		[]string{"op", "outcome"}, // op: create, update, delete; outcome: ok, invalid, forbidden, error
	)

	// 提醒任务同步计数
	ReminderJobSyncCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_job_sync_total",
			Help: "Recurring reminder job upserts and removals",
		},
		[]string{"op", "outcome"}, // op: upsert, remove; outcome: ok, error
	)

	ReminderFiredCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_fired_total",
			Help: "Recurring reminder jobs fired by the scheduler",
		},
		[]string{"outcome"},
	)

	ReminderScheduledJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_scheduled_jobs",
			Help: "Number of recurring reminder jobs currently registered in the scheduler",
		},
	)

	// 提醒投递计数
	ReminderDeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_delivery_total",
			Help: "Telegram reminder deliveries by status",
		},
		[]string{"status"}, // status: sent, failed, retried, duplicate, dropped
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func IncrementHabitWrite(op, outcome string) {
	HabitWriteCount.WithLabelValues(op, outcome).Inc()
}

func IncrementReminderJobSync(op, outcome string) {
	ReminderJobSyncCount.WithLabelValues(op, outcome).Inc()
}

func IncrementReminderFired(outcome string) {
	ReminderFiredCount.WithLabelValues(outcome).Inc()
}

func SetScheduledJobs(n int) {
	ReminderScheduledJobs.Set(float64(n))
}

func IncrementReminderDelivery(status string) {
	ReminderDeliveryCount.WithLabelValues(status).Inc()
}
