package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/John-Robertt/meshaudit/internal/aggregate"
	"github.com/John-Robertt/meshaudit/internal/classify"
	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/extract"
	"github.com/John-Robertt/meshaudit/internal/provider"
	"github.com/John-Robertt/meshaudit/internal/report"
)

// Request 是一次审计的调用方输入。
type Request struct {
	Selection domain.Selection
	Mode      domain.Mode
	Root      string
}

// RequestFromSettings 把审计设置转换为 Request。
func RequestFromSettings(s domain.Settings) Request {
	return Request{Selection: s.Includes, Mode: s.Mode, Root: s.Root}
}

// Result 是一次审计的结果。
//
// Report 只包含报告行；诊断（空选择提示、缺失数据警告、取消横幅等）单独放在 Diagnostics。
// Cancelled / EmptySelection / Failed 时 Report 为空。
type Result struct {
	Outcome     string
	State       State
	Trace       []State
	Report      []domain.Line
	Diagnostics []domain.Line

	Scanned      int
	Skipped      int
	Unrecognized int
	PerCategory  map[domain.Category]int

	StartedAt  time.Time
	FinishedAt time.Time

	Err error
}

// Driver 编排 Classifier -> Extractor -> Aggregator -> Reporter。
//
// 单个 Driver 可以被多次调用，每次 Run 拥有独立的累加器；Driver 本身不保存审计状态。
type Driver struct {
	p    provider.Provider
	sink Sink
	obs  Observer
	now  func() time.Time
}

type Option func(*Driver)

// WithObserver 注入进度观察者（nil 表示不观察）。
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.obs = o }
}

// WithClock 注入时钟（测试用）。
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

func New(p provider.Provider, sink Sink, opts ...Option) *Driver {
	if sink == nil {
		sink = nopSink{}
	}
	d := &Driver{p: p, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type runState struct {
	m   *machine
	res Result
}

func (d *Driver) diag(rs *runState, line domain.Line) {
	rs.res.Diagnostics = append(rs.res.Diagnostics, line)
	d.sink.Emit(line)
}

// Run 执行一次审计。
//
// 取消：ctx.Err() 只在每个资产处理完成后检查（单个资产的解析/提取不可中断）。
// 单资产失败一律降级为 warning 并跳过；只有资产查询失败会让整次审计失败。
func (d *Driver) Run(ctx context.Context, req Request) Result {
	started := d.now()
	rs := &runState{m: newMachine()}
	rs.res.StartedAt = started
	rs.res.PerCategory = make(map[domain.Category]int, len(domain.Categories))

	if d.obs != nil {
		d.obs.OnStart(req)
	}

	d.execute(ctx, req, rs)

	rs.res.State = rs.m.cur
	rs.res.Trace = rs.m.trace
	rs.res.FinishedAt = d.now()
	if d.obs != nil {
		d.obs.OnFinish(rs.res.Outcome, rs.res.FinishedAt.Sub(started))
	}
	return rs.res
}

func (d *Driver) execute(ctx context.Context, req Request, rs *runState) {
	rs.m.move(StateValidating)

	if req.Selection.IsEmpty() {
		d.diag(rs, domain.Info(report.MsgEmptySelection))
		rs.res.Outcome = domain.OutcomeEmptySelection
		rs.m.move(StateDone)
		return
	}

	queryStarted := d.now()
	refs, err := provider.QueryAssets(ctx, d.p, domain.Query{
		TypeTags:  classify.TypeTags(req.Selection),
		Root:      req.Root,
		Recursive: true,
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// 查询阶段被取消：视为扫描开始即取消。
			rs.m.move(StateScanning)
			d.cancel(rs)
			return
		}
		d.diag(rs, domain.Warning(fmt.Sprintf("资产查询失败：%v", err)))
		rs.res.Outcome = domain.OutcomeFailed
		rs.res.Err = err
		rs.m.move(StateDone)
		return
	}
	if d.obs != nil {
		d.obs.OnPhaseDone("query", map[string]any{
			"assets": len(refs),
			"root":   req.Root,
		}, d.now().Sub(queryStarted))
	}

	rs.m.move(StateScanning)
	scanStarted := d.now()
	acc := aggregate.New(req.Mode)
	for i, ref := range refs {
		oneStarted := d.now()
		c, skip := d.scanOne(ctx, req, ref, acc, rs)
		if d.obs != nil {
			d.obs.OnAssetDone(i+1, len(refs), ref, c, skip, d.now().Sub(oneStarted))
		}
		if ctx.Err() != nil {
			d.cancel(rs)
			return
		}
	}
	if d.obs != nil {
		d.obs.OnPhaseDone("scan", map[string]any{
			"scanned":      rs.res.Scanned,
			"skipped":      rs.res.Skipped,
			"unrecognized": rs.res.Unrecognized,
		}, d.now().Sub(scanStarted))
	}

	rs.m.move(StateReporting)
	reportStarted := d.now()
	lines := report.Render(req.Mode, req.Selection, acc.Result())
	for _, l := range lines {
		d.sink.Emit(l)
	}
	rs.res.Report = lines
	rs.res.Outcome = domain.OutcomeCompleted
	if d.obs != nil {
		d.obs.OnPhaseDone("report", map[string]any{
			"lines": len(lines),
		}, d.now().Sub(reportStarted))
	}
	rs.m.move(StateDone)
}

func (d *Driver) cancel(rs *runState) {
	d.diag(rs, domain.Info(report.BannerCancelled))
	rs.res.Outcome = domain.OutcomeCancelled
	rs.res.Report = nil
	rs.m.move(StateCancelled)
}

// scanOne 分类、解析并提取单个资产；返回其类别与跳过原因（空串表示已计入统计）。
func (d *Driver) scanOne(ctx context.Context, req Request, ref domain.AssetRef, acc *aggregate.Accumulator, rs *runState) (domain.Category, string) {
	c, ok := classify.Classify(ref.TypeTag)
	if !ok {
		rs.res.Unrecognized++
		return 0, domain.SkipUnrecognized
	}
	// 过滤只约束查询范围；索引仍可能返回未选中的类别。
	if !req.Selection.Has(c) {
		rs.res.Skipped++
		return c, domain.SkipNotSelected
	}

	// 解析期间的取消不打断当前资产，由 execute 在资产之间处理。
	h, err := provider.ResolveAsset(context.WithoutCancel(ctx), d.p, ref)
	if err != nil {
		d.diag(rs, domain.Warning(fmt.Sprintf("资产加载失败，已跳过：%s：%v", ref.Name, err)))
		rs.res.Skipped++
		return c, domain.SkipLoadFailed
	}

	rec, err := extract.Extract(c, h)
	if err != nil {
		if !extract.IsPartial(err) {
			d.diag(rs, domain.Warning(fmt.Sprintf("资产加载失败，已跳过：%s：%v", ref.Name, err)))
			rs.res.Skipped++
			return c, domain.SkipLoadFailed
		}
		d.diag(rs, domain.Warning(err.Error()))
	}

	acc.Add(aggregate.Entry{Name: displayName(ref, h), Record: rec})
	rs.res.Scanned++
	rs.res.PerCategory[c]++
	return c, ""
}

func displayName(ref domain.AssetRef, h any) string {
	if n, ok := h.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return ref.Name
}
