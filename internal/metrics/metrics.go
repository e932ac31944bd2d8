// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordPublish(resolved bool)
	RecordPublishFailure()
	RecordPollDuration(duration time.Duration)
	RecordProxyRequest(kind string)
	RecordEngagement(kind string)
	RecordSync(synced int)
	RecordSyncFailure()
	RecordWebhook(topic string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	publishTotal    *prometheus.CounterVec
	publishFail     prometheus.Counter
	pollDuration    prometheus.Histogram
	proxyRequests   *prometheus.CounterVec
	engagementTotal *prometheus.CounterVec
	syncedReels     prometheus.Counter
	syncFail        prometheus.Counter
	webhookTotal    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelcart_publish_total",
			Help: "リール公開の合計数（CDN解決有無別）",
		}, []string{"resolved"}),
		publishFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcart_publish_fail_total",
			Help: "リール公開失敗の合計数",
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reelcart_poll_duration_seconds",
			Help:    "動画処理待ちポーリングの所要時間（秒）",
			Buckets: []float64{1, 3, 6, 9, 15, 30, 60},
		}),
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelcart_proxy_requests_total",
			Help: "ストアフロントプロキシへのリクエスト数（種別別）",
		}, []string{"kind"}),
		engagementTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelcart_engagement_total",
			Help: "エンゲージメントイベントの合計数（種別別）",
		}, []string{"kind"}),
		syncedReels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcart_synced_reels_total",
			Help: "Instagram同期でupsertされたリールの合計数",
		}),
		syncFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcart_sync_fail_total",
			Help: "Instagram同期失敗の合計数",
		}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelcart_webhook_total",
			Help: "受信したWebhookの合計数（トピック別）",
		}, []string{"topic"}),
	}

	reg.MustRegister(
		c.publishTotal,
		c.publishFail,
		c.pollDuration,
		c.proxyRequests,
		c.engagementTotal,
		c.syncedReels,
		c.syncFail,
		c.webhookTotal,
	)

	return c
}

// RecordPublish はリール公開を記録する。resolvedはCDN URLが解決できたかどうか。
func (c *Collector) RecordPublish(resolved bool) {
	label := "false"
	if resolved {
		label = "true"
	}
	c.publishTotal.WithLabelValues(label).Inc()
}

// RecordPublishFailure はリール公開失敗を記録する。
func (c *Collector) RecordPublishFailure() {
	c.publishFail.Inc()
}

// RecordPollDuration は動画処理待ちの所要時間を記録する。
func (c *Collector) RecordPollDuration(duration time.Duration) {
	c.pollDuration.Observe(duration.Seconds())
}

// RecordProxyRequest はプロキシリクエストを記録する。kindはread/engageなど。
func (c *Collector) RecordProxyRequest(kind string) {
	c.proxyRequests.WithLabelValues(kind).Inc()
}

// RecordEngagement はエンゲージメントイベントを記録する。kindはview/likeなど。
func (c *Collector) RecordEngagement(kind string) {
	c.engagementTotal.WithLabelValues(kind).Inc()
}

// RecordSync は同期されたリール数を記録する。
func (c *Collector) RecordSync(synced int) {
	c.syncedReels.Add(float64(synced))
}

// RecordSyncFailure はInstagram同期失敗を記録する。
func (c *Collector) RecordSyncFailure() {
	c.syncFail.Inc()
}

// RecordWebhook は受信Webhookを記録する。
func (c *Collector) RecordWebhook(topic string) {
	c.webhookTotal.WithLabelValues(topic).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
