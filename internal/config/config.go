package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/infra/logx"
)

// FileName 是配置文件名（位于审计 path 下，或无参运行时位于 cwd 下）。
const FileName = "meshaudit.json"

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 meshaudit.json。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = domain.ErrCodeConfigMissingPath
)

const (
	ProviderLocal   = "local"
	ProviderCatalog = "catalog"

	// DefaultProvider 是 provider 的最终默认值（当 CLI 与配置文件都未指定时）。
	DefaultProvider = ProviderLocal
	// DefaultLogLevel 让终端默认只看到 warn 以上的运行日志；报告行不受影响。
	DefaultLogLevel  = "warn"
	DefaultLogFormat = logx.FormatConsole
)

// CLIArgs 是 CLI 暴露的入口参数，并保留“是否显式指定”的信息，
// 这样 --include "" 可以显式覆盖配置文件中的 include。
type CLIArgs struct {
	Path string

	Provider    string
	ProviderSet bool

	Root    string
	RootSet bool

	Include    []string
	IncludeSet bool

	Mode    string
	ModeSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 meshaudit.json 的解析结构。
//
// Include 为 nil 表示未配置（默认全选）；空数组表示显式清空（审计会以 empty_selection 结束）。
type FileConfig struct {
	Path            string       `json:"path"`
	Root            string       `json:"root"`
	Include         []string     `json:"include"`
	Mode            string       `json:"mode"`
	Provider        string       `json:"provider"`
	CatalogURL      string       `json:"catalog_url"`
	Proxy           *ProxyConfig `json:"proxy"`
	ExcludeDirs     []string     `json:"exclude_dirs"`
	Log             *LogConfig   `json:"log"`
	MetricsTextfile string       `json:"metrics_textfile"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	// Settings 是审计输入（root 范围 + 类别选择 + 聚合模式）。
	Settings domain.Settings

	Provider    string
	CatalogURL  string
	ProxyURL    string
	ExcludeDirs []string

	Log logx.Config

	// MetricsTextfile 为空表示不输出指标。
	MetricsTextfile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/meshaudit.json（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/meshaudit.json（必选），且其中必须包含 path
//
// 覆盖优先级：CLI > config > 默认。catalog_url / proxy / exclude_dirs / log.format /
// metrics_textfile 仅由 config 控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(absPath, FileName)

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(absPath, cli, fc, cfgPath)
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	return merge(absCleanFrom(cwdAbs, fc.Path), cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	provider := DefaultProvider
	if cli.ProviderSet {
		provider = strings.ToLower(strings.TrimSpace(cli.Provider))
	} else if strings.TrimSpace(fc.Provider) != "" {
		provider = strings.ToLower(strings.TrimSpace(fc.Provider))
	}
	if err := validateProvider(provider); err != nil {
		return invalid(err)
	}

	root := fc.Root
	if cli.RootSet {
		root = cli.Root
	}
	root, err := cleanRoot(root)
	if err != nil {
		return invalid(err)
	}

	// include：未配置 = 全选。
	sel := domain.AllSelected()
	switch {
	case cli.IncludeSet:
		sel, err = domain.ParseSelection(cli.Include)
	case fc.Include != nil:
		sel, err = domain.ParseSelection(fc.Include)
	}
	if err != nil {
		return invalid(err)
	}

	mode := domain.Individual
	switch {
	case cli.ModeSet:
		mode, err = domain.ParseMode(cli.Mode)
	case strings.TrimSpace(fc.Mode) != "":
		mode, err = domain.ParseMode(fc.Mode)
	}
	if err != nil {
		return invalid(err)
	}

	catalogURL := strings.TrimSpace(fc.CatalogURL)
	if catalogURL != "" {
		u, err := url.Parse(catalogURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return invalid(fmt.Errorf("catalog_url 必须是 http/https 绝对地址：%q", catalogURL))
		}
	}
	if provider == ProviderCatalog && catalogURL == "" {
		return invalid(errors.New("provider=catalog 但 catalog_url 为空"))
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return invalid(fmt.Errorf("proxy.url 无效：%w", err))
		}
	}

	lc := logx.Config{Level: DefaultLogLevel, Format: DefaultLogFormat}
	if fc.Log != nil {
		if s := strings.TrimSpace(fc.Log.Level); s != "" {
			lc.Level = s
		}
		if s := strings.TrimSpace(fc.Log.Format); s != "" {
			lc.Format = strings.ToLower(s)
		}
	}
	if cli.LogLevelSet {
		lc.Level = cli.LogLevel
	}
	if _, err := logx.ParseLevel(lc.Level); err != nil {
		return invalid(err)
	}
	if lc.Format != logx.FormatConsole && lc.Format != logx.FormatJSON {
		return invalid(fmt.Errorf("log.format 只能是 console 或 json，实际是 %q", lc.Format))
	}

	metricsFile := ""
	if s := strings.TrimSpace(fc.MetricsTextfile); s != "" {
		metricsFile = absCleanFrom(absPath, s)
	}

	return EffectiveConfig{
		Path:            absPath,
		Settings:        domain.Settings{Root: root, Includes: sel, Mode: mode},
		Provider:        provider,
		CatalogURL:      catalogURL,
		ProxyURL:        proxyURL,
		ExcludeDirs:     append([]string(nil), fc.ExcludeDirs...),
		Log:             lc,
		MetricsTextfile: metricsFile,
	}, nil
}

func validateProvider(p string) error {
	switch p {
	case ProviderLocal, ProviderCatalog:
		return nil
	case "":
		return fmt.Errorf("provider 不能为空")
	default:
		return fmt.Errorf("provider 只能是 local 或 catalog，实际是 %q", p)
	}
}

// cleanRoot 把 root 规范化为 path 下的相对 slash 路径；"" 与 "." 都表示整个 path。
func cleanRoot(root string) (string, error) {
	r := filepath.ToSlash(strings.TrimSpace(root))
	if r == "" {
		return "", nil
	}
	if strings.HasPrefix(r, "/") || filepath.IsAbs(root) {
		return "", fmt.Errorf("root 必须是相对 path 的路径：%q", root)
	}
	c := filepath.ToSlash(filepath.Clean(filepath.FromSlash(r)))
	if c == "." {
		return "", nil
	}
	if c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("root 不能位于 path 之外：%q", root)
	}
	return c, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
