// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notenews"

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェア、サービス層、取り込みワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordNoteCreated()
	RecordCommentCreated()
	RecordCommentRejected()
	RecordFetchSuccess(sourceID string)
	RecordFetchFailure(sourceID string, reason string)
	RecordParseFailure(sourceID string)
	RecordFetchLatency(duration time.Duration)
	RecordNewsUpserted(inserted, updated int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	notesCreated    prometheus.Counter
	commentsCreated prometheus.Counter
	commentsBlocked prometheus.Counter
	fetchSuccess    prometheus.Counter
	fetchFail       *prometheus.CounterVec
	parseFail       prometheus.Counter
	fetchLatency    prometheus.Histogram
	newsUpserted    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "ルート・メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTPリクエストの処理時間（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		notesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_created_total",
			Help:      "作成されたノートの合計数",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_created_total",
			Help:      "投稿されたコメントの合計数",
		}),
		commentsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_rejected_total",
			Help:      "禁止語により拒否されたコメントの合計数",
		}),
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_success_total",
			Help:      "ニュースソース取得成功の合計数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_fail_total",
			Help:      "ニュースソース取得失敗の合計数",
		}, []string{"reason"}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_fail_total",
			Help:      "フィードパース失敗の合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_latency_seconds",
			Help:      "ニュースソース取得のレイテンシ（秒）",
			Buckets:   prometheus.DefBuckets,
		}),
		newsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_upserted_total",
			Help:      "取り込まれたニュースの合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.notesCreated,
		c.commentsCreated,
		c.commentsBlocked,
		c.fetchSuccess,
		c.fetchFail,
		c.parseFail,
		c.fetchLatency,
		c.newsUpserted,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストを記録する。routeはchiのルートパターン。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordNoteCreated()     { c.notesCreated.Inc() }
func (c *Collector) RecordCommentCreated()  { c.commentsCreated.Inc() }
func (c *Collector) RecordCommentRejected() { c.commentsBlocked.Inc() }

// RecordFetchSuccess はフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess(sourceID string) {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure はフェッチ失敗を理由別に記録する。
func (c *Collector) RecordFetchFailure(sourceID string, reason string) {
	c.fetchFail.WithLabelValues(reason).Inc()
}

// RecordParseFailure はパース失敗を記録する。
func (c *Collector) RecordParseFailure(sourceID string) {
	c.parseFail.Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordNewsUpserted は新規作成と更新の件数を記録する。
func (c *Collector) RecordNewsUpserted(inserted, updated int) {
	c.newsUpserted.WithLabelValues("inserted").Add(float64(inserted))
	c.newsUpserted.WithLabelValues("updated").Add(float64(updated))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordNoteCreated()                                   {}
func (Nop) RecordCommentCreated()                                {}
func (Nop) RecordCommentRejected()                               {}
func (Nop) RecordFetchSuccess(string)                            {}
func (Nop) RecordFetchFailure(string, string)                    {}
func (Nop) RecordParseFailure(string)                            {}
func (Nop) RecordFetchLatency(time.Duration)                     {}
func (Nop) RecordNewsUpserted(int, int)                          {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
