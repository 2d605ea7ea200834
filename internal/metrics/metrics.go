// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordFocusSession(completed bool)
	RecordGardenItemCreated()
	RecordRegistration()
	RecordLoginFailure()
	RecordExpiredTokensPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	focusSessions  *prometheus.CounterVec
	gardenItems    prometheus.Counter
	registrations  prometheus.Counter
	loginFailures  prometheus.Counter
	tokensPurged   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timegarden_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timegarden_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		focusSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timegarden_focus_sessions_total",
			Help: "記録された集中セッション数（完了/中断別）",
		}, []string{"completed"}),
		gardenItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timegarden_garden_items_created_total",
			Help: "作成されたガーデンアイテムの合計数",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timegarden_registrations_total",
			Help: "新規ユーザー登録の合計数",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timegarden_login_failures_total",
			Help: "ログイン失敗の合計数",
		}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timegarden_expired_tokens_purged_total",
			Help: "クリーンアップで削除された期限切れトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.focusSessions,
		c.gardenItems,
		c.registrations,
		c.loginFailures,
		c.tokensPurged,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordFocusSession は集中セッションの記録を数える。
func (c *Collector) RecordFocusSession(completed bool) {
	c.focusSessions.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

// RecordGardenItemCreated はガーデンアイテムの新規作成を数える。
func (c *Collector) RecordGardenItemCreated() {
	c.gardenItems.Inc()
}

// RecordRegistration は新規登録を数える。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLoginFailure はログイン失敗を数える。
func (c *Collector) RecordLoginFailure() {
	c.loginFailures.Inc()
}

// RecordExpiredTokensPurged は削除した期限切れトークン数を加算する。
func (c *Collector) RecordExpiredTokensPurged(count int64) {
	c.tokensPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクスを使わないコマンドやテストで使用する。
type Nop struct{}

func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordFocusSession(bool)            {}
func (Nop) RecordGardenItemCreated()           {}
func (Nop) RecordRegistration()                {}
func (Nop) RecordLoginFailure()                {}
func (Nop) RecordExpiredTokensPurged(int64)    {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
