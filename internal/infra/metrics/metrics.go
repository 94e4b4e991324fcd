// Package metrics 把审计进度事件记录为 Prometheus 指标。
//
// 命令行是一次性进程，不暴露 /metrics 端点；指标在退出前写入 node_exporter textfile。
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/John-Robertt/meshaudit/internal/app/audit"
	"github.com/John-Robertt/meshaudit/internal/domain"
)

const namespace = "meshaudit"

// Recorder 实现 audit.Observer。每个 Recorder 持有独立 Registry，互不干扰。
type Recorder struct {
	reg *prometheus.Registry

	scanned       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	audits        *prometheus.CounterVec
	auditDuration prometheus.Histogram
	phaseDuration *prometheus.HistogramVec
	lastSuccess   prometheus.Gauge

	now func() time.Time
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		scanned: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assets_scanned_total",
				Help:      "Assets whose metrics were added to the audit",
			},
			[]string{"category"},
		),
		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assets_skipped_total",
				Help:      "Assets left out of the audit",
			},
			[]string{"reason"},
		),
		audits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audits_total",
				Help:      "Audit runs by outcome",
			},
			[]string{"outcome"},
		),
		auditDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "Wall time of a whole audit run",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		phaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Wall time of each audit phase",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time of the last completed audit",
		}),
		now: time.Now,
	}
}

// Registry 返回私有 Registry（测试与 textfile 输出使用）。
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) OnStart(audit.Request) {}

func (r *Recorder) OnPhaseDone(name string, _ map[string]any, dur time.Duration) {
	r.phaseDuration.WithLabelValues(name).Observe(dur.Seconds())
}

func (r *Recorder) OnAssetDone(_, _ int, _ domain.AssetRef, c domain.Category, skip string, _ time.Duration) {
	if skip != "" {
		r.skipped.WithLabelValues(skip).Inc()
		return
	}
	r.scanned.WithLabelValues(c.String()).Inc()
}

func (r *Recorder) OnFinish(outcome string, dur time.Duration) {
	r.audits.WithLabelValues(outcome).Inc()
	r.auditDuration.Observe(dur.Seconds())
	if outcome == domain.OutcomeCompleted {
		r.lastSuccess.Set(float64(r.now().Unix()))
	}
}

// WriteTextfile 以 Prometheus 文本格式写出全部指标（先写临时文件再 rename）。
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
