package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/meshaudit/internal/app/audit"
	"github.com/John-Robertt/meshaudit/internal/config"
	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/report"
)

var _ audit.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出；
// driver 只发事件，CLI 决定如何展示。
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu  sync.Mutex
	now func() time.Time

	ok   int
	skip int
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{w: w, eff: eff, now: time.Now}
}

func (p *progressUI) OnStart(req audit.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "[%s] %s\n", p.now().Format("15:04:05"), report.MsgStarting)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", p.eff.Path)
	fmt.Fprintf(p.w, "  root: %s\n", formatRoot(req.Root))
	fmt.Fprintf(p.w, "  include: %s\n", formatStringListJSON(req.Selection.Names()))
	fmt.Fprintf(p.w, "  mode: %s\n", req.Mode)
	fmt.Fprintf(p.w, "  provider: %s\n", p.eff.Provider)
	if p.eff.Provider == config.ProviderCatalog {
		fmt.Fprintf(p.w, "  catalog_url: %s\n", truncate(p.eff.CatalogURL, 120))
		fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.ProxyURL))
	}
	fmt.Fprintf(p.w, "  exclude_dirs: %s + 固定排除 cache/\n", formatStringListJSON(p.eff.ExcludeDirs))
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "query":
		fmt.Fprintf(p.w, "查询: assets=%d (%s)\n", intField(fields, "assets"), formatShortDuration(dur))
	case "scan":
		fmt.Fprintf(p.w, "扫描: scanned=%d skipped=%d unrecognized=%d (%s)\n",
			intField(fields, "scanned"), intField(fields, "skipped"), intField(fields, "unrecognized"), formatShortDuration(dur),
		)
	case "report":
		fmt.Fprintf(p.w, "报告: lines=%d (%s)\n\n", intField(fields, "lines"), formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnAssetDone(idx, total int, ref domain.AssetRef, c domain.Category, skip string, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if skip != "" {
		p.skip++
		fmt.Fprintf(p.w, "[%d/%d] %s SKIP %s (%s)\n", idx, total, assetLabel(ref), skip, formatShortDuration(dur))
		return
	}
	p.ok++
	fmt.Fprintf(p.w, "[%d/%d] %s OK %s (%s)\n", idx, total, assetLabel(ref), c, formatShortDuration(dur))
}

func (p *progressUI) OnFinish(outcome string, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "结束: outcome=%s ok=%d skip=%d elapsed=%s\n", outcome, p.ok, p.skip, formatElapsed(dur))
}

func assetLabel(ref domain.AssetRef) string {
	if s := strings.TrimSpace(ref.RelPath); s != "" {
		return truncate(s, 100)
	}
	return truncate(ref.Name, 100)
}

func formatRoot(root string) string {
	if strings.TrimSpace(root) == "" {
		return "."
	}
	return root
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
