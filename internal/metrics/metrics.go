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
// ミドルウェアとサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int)
	RecordHTTPLatency(duration time.Duration)
	RecordUploadSuccess()
	RecordUploadFailure(reason string)
	RecordImagesDeleted(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   prometheus.Histogram
	uploadSuccess prometheus.Counter
	uploadFail    *prometheus.CounterVec
	imagesDeleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatai_http_requests_total",
			Help: "メソッド・ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yatai_http_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		uploadSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatai_upload_success_total",
			Help: "画像アップロード成功の合計数",
		}),
		uploadFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatai_upload_fail_total",
			Help: "理由別の画像アップロード失敗数",
		}, []string{"reason"}),
		imagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatai_images_deleted_total",
			Help: "オブジェクトストレージから削除された画像の合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.uploadSuccess,
		c.uploadFail,
		c.imagesDeleted,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はHTTPリクエストのレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// RecordUploadSuccess はアップロード成功を記録する。
func (c *Collector) RecordUploadSuccess() {
	c.uploadSuccess.Inc()
}

// RecordUploadFailure はアップロード失敗を理由付きで記録する。
func (c *Collector) RecordUploadFailure(reason string) {
	c.uploadFail.WithLabelValues(reason).Inc()
}

// RecordImagesDeleted は削除された画像数を記録する。
func (c *Collector) RecordImagesDeleted(count int) {
	c.imagesDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
