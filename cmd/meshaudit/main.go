package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/meshaudit/internal/app/audit"
	"github.com/John-Robertt/meshaudit/internal/config"
	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/infra/cache"
	"github.com/John-Robertt/meshaudit/internal/infra/httpx"
	"github.com/John-Robertt/meshaudit/internal/infra/logx"
	"github.com/John-Robertt/meshaudit/internal/infra/metrics"
	"github.com/John-Robertt/meshaudit/internal/provider"
	"github.com/John-Robertt/meshaudit/internal/provider/catalog"
	"github.com/John-Robertt/meshaudit/internal/provider/local"
)

// version 由构建时 -ldflags "-X main.version=..." 覆盖。
var version = "0.1.0-dev"

// 退出码：
//   - 0：审计完成
//   - 1：空选择 / 配置错误 / 资产查询失败
//   - 2：命令行参数错误
//   - 130：被中断
const (
	exitOK        = 0
	exitFailed    = 1
	exitUsage     = 2
	exitCancelled = 130
)

// exitError 携带退出码；Err 为 nil 时表示结果已输出，无需再打印错误。
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *exitError) Unwrap() error { return e.Err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.Err != nil {
			fmt.Fprintln(stderr, ee.Err)
		}
		return ee.Code
	}
	// 其余错误来自 cobra 的参数解析。
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	return exitUsage
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meshaudit",
		Short:         "统计游戏资产（静态网格/骨骼网格/骨架/动画）的复杂度指标",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newVersionCmd())
	root.AddCommand(newRunCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "meshaudit %s\n", version)
		},
	}
}

type runFlags struct {
	include  []string
	mode     string
	provider string
	root     string
	logLevel string
	json     bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "审计 path 下的资产并输出报告",
		Long: `审计 path 下的资产并输出报告。

未给出 path 时读取 ./meshaudit.json（必须包含 path）；给出 path 时 <path>/meshaudit.json 可选。
stdout 是终端时输出纯文本报告，否则（或 --json）只输出一个 JSON 文档；进度与日志走 stderr。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			fl := cmd.Flags()
			cli := config.CLIArgs{
				Path:        path,
				Provider:    f.provider,
				ProviderSet: fl.Changed("provider"),
				Root:        f.root,
				RootSet:     fl.Changed("root"),
				Include:     f.include,
				IncludeSet:  fl.Changed("include"),
				Mode:        f.mode,
				ModeSet:     fl.Changed("mode"),
				LogLevel:    f.logLevel,
				LogLevelSet: fl.Changed("log-level"),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code := runAudit(ctx, cli, f.json, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != exitOK {
				return &exitError{Code: code}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&f.include, "include", nil, "参与审计的类别：static_mesh,skeletal_mesh,skeleton,animation|all（默认全部）")
	fl.StringVar(&f.mode, "mode", "", "聚合模式：individual|total|average（默认 individual）")
	fl.StringVar(&f.provider, "provider", "", "资产来源：local|catalog（默认 local）")
	fl.StringVar(&f.root, "root", "", "审计范围：path 下的相对目录（默认整个 path）")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error（默认 warn）")
	fl.BoolVar(&f.json, "json", false, "强制输出 JSON 报告")
	return cmd
}

// runAudit 执行一次完整审计并输出报告，返回退出码。
func runAudit(ctx context.Context, cli config.CLIArgs, forceJSON bool, stdout, stderr io.Writer) int {
	jsonOut := forceJSON || !isTTY(stdout)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return exitFailed
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		cwdAbs, _ := filepath.Abs(cwd)
		emitReport(stdout, stderr, jsonOut, reportForConfigError(cwdAbs, err))
		return exitFailed
	}

	logger, err := logx.NewWithWriter(eff.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败：%v\n", err)
		return exitFailed
	}
	defer func() { _ = logger.Sync() }()

	p, err := pickProvider(eff, logger)
	if err != nil {
		fmt.Fprintf(stderr, "初始化 provider 失败：%v\n", err)
		return exitFailed
	}

	var obs audit.Observers
	progressW, interactive := pickProgressWriter(stdout, stderr, jsonOut)
	if interactive {
		obs = append(obs, newProgressUI(progressW, eff))
	}
	var rec *metrics.Recorder
	if eff.MetricsTextfile != "" {
		rec = metrics.NewRecorder()
		obs = append(obs, rec)
	}

	// 纯文本模式：报告行与警告直接写 stdout；JSON 模式：行只进入 JSON，同时记日志。
	var sink audit.Sink = audit.NewZapSink(logger.Named("audit"))
	if !jsonOut {
		sink = audit.NewWriterSink(stdout)
	}

	req := audit.RequestFromSettings(eff.Settings)
	res := audit.New(p, sink, audit.WithObserver(obs)).Run(ctx, req)

	if rec != nil {
		if err := rec.WriteTextfile(eff.MetricsTextfile); err != nil {
			logger.Warn("写入指标文件失败", zap.String("file", eff.MetricsTextfile), zap.Error(err))
		}
	}

	ar := buildReport(eff, res)
	emitReport(stdout, stderr, jsonOut, ar)
	return exitCode(res.Outcome)
}

func pickProvider(eff config.EffectiveConfig, logger *zap.Logger) (provider.Provider, error) {
	ps := []provider.Provider{local.New(eff.Path, eff.ExcludeDirs, logger)}
	if eff.CatalogURL != "" {
		client, err := httpx.NewClient(eff.ProxyURL)
		if err != nil {
			return nil, err
		}
		cp, err := catalog.New(eff.CatalogURL, client, cache.New(eff.Path), logger)
		if err != nil {
			return nil, err
		}
		ps = append(ps, cp)
	}

	reg, err := provider.NewRegistry(ps...)
	if err != nil {
		return nil, err
	}
	p, ok := reg.Get(eff.Provider)
	if !ok {
		return nil, fmt.Errorf("未注册的 provider：%q（可用：%v）", eff.Provider, reg.Names())
	}
	return p, nil
}

func exitCode(outcome string) int {
	switch outcome {
	case domain.OutcomeCompleted:
		return exitOK
	case domain.OutcomeCancelled:
		return exitCancelled
	default:
		return exitFailed
	}
}

func buildReport(eff config.EffectiveConfig, res audit.Result) domain.AuditReport {
	ar := domain.AuditReport{
		RunID:       uuid.NewString(),
		Path:        eff.Path,
		Root:        eff.Settings.Root,
		Provider:    eff.Provider,
		Mode:        eff.Settings.Mode,
		Selection:   eff.Settings.Includes,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Outcome:     res.Outcome,
		Lines:       res.Report,
		Diagnostics: res.Diagnostics,
		Summary: domain.ReportSummary{
			Scanned:     res.Scanned,
			Skipped:     res.Skipped,
			PerCategory: make(map[string]int, len(res.PerCategory)),
		},
	}
	for c, n := range res.PerCategory {
		ar.Summary.PerCategory[c.String()] = n
	}
	if res.Err != nil {
		ar.ErrorCode = domain.ErrCodeQueryFailed
		ar.ErrorMsg = res.Err.Error()
	}
	ar.Finalize()
	return ar
}

func reportForConfigError(cwdAbs string, err error) domain.AuditReport {
	now := time.Now().UTC()
	ar := domain.AuditReport{
		RunID:      uuid.NewString(),
		Path:       cwdAbs,
		StartedAt:  now,
		FinishedAt: now,
		Outcome:    domain.OutcomeFailed,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
	}
	ar.Finalize()
	return ar
}

// emitReport 输出最终结果。
//
// JSON 模式：stdout 必须且仅输出一个 AuditReport JSON，摘要走 stderr。
// 纯文本模式：报告行已由 WriterSink 写到 stdout，这里只补摘要/错误。
func emitReport(stdout, stderr io.Writer, jsonOut bool, ar domain.AuditReport) {
	if jsonOut {
		enc := json.NewEncoder(stdout)
		_ = enc.Encode(ar)
	}
	if ar.ErrorCode != "" {
		fmt.Fprintf(stderr, "%s: %s\n", ar.ErrorCode, ar.ErrorMsg)
	}
	fmt.Fprintf(stderr, "完成：outcome=%s scanned=%d skipped=%d warnings=%d\n",
		ar.Outcome, ar.Summary.Scanned, ar.Summary.Skipped, ar.Summary.Warnings,
	)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer, jsonOut bool) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout 报告）。
	if isTTY(stderr) {
		return stderr, true
	}
	// 纯文本模式下 stdout 本身就是终端：退化输出到 stdout。
	if !jsonOut && isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
