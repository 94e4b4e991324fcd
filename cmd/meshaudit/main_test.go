package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/John-Robertt/meshaudit/internal/config"
	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/report"
)

func writeAsset(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

func assetTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeAsset(t, filepath.Join(dir, "Game", "SM_A.asset.json"), `{"type":"StaticMesh","lods":[{"triangles":100},{"triangles":50}],"material_slots":1}`)
	writeAsset(t, filepath.Join(dir, "Game", "SM_B.asset.json"), `{"type":"StaticMesh","lods":[{"triangles":20},{"triangles":10}],"material_slots":3}`)
	writeAsset(t, filepath.Join(dir, "Game", "A_Run.asset.json"), `{"type":"AnimSequence","sampled_keys":31}`)
	return dir
}

func chdirForTest(t *testing.T, dir string) func() {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("切换目录失败：%v", err)
	}
	return func() { _ = os.Chdir(wd) }
}

func decodeReport(t *testing.T, b []byte) domain.AuditReport {
	t.Helper()
	var ar domain.AuditReport
	if err := json.Unmarshal(b, &ar); err != nil {
		t.Fatalf("stdout 不是合法的 AuditReport JSON：%v\nstdout=%q", err, string(b))
	}
	return ar
}

func TestRun_NoTTY_StdoutOnlyAuditReportJSON(t *testing.T) {
	dir := assetTree(t)
	var stdout, stderr bytes.Buffer

	code := execute([]string{"run", dir, "--mode", "total", "--include", "static_mesh"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr.String())
	}

	ar := decodeReport(t, stdout.Bytes())
	if _, err := uuid.Parse(ar.RunID); err != nil {
		t.Fatalf("run_id 不是 uuid：%q", ar.RunID)
	}
	if ar.Outcome != domain.OutcomeCompleted || ar.Mode != domain.Total || ar.Provider != config.ProviderLocal {
		t.Fatalf("报告头不正确：%+v", ar)
	}
	if ar.Summary.Scanned != 2 || ar.Summary.PerCategory["static_mesh"] != 2 {
		t.Fatalf("摘要不正确：%+v", ar.Summary)
	}
	want := []string{
		report.BannerTotal,
		"STATIC MESH:",
		"     Number of Assets: 2",
		"     Number of LODs: 4",
		"        Number of Triangles on LOD[0]: 120",
		"        Number of Triangles on LOD[1]: 60",
		"     Number of Material Slots: 4",
		report.BannerEnd,
	}
	if got := report.Text(ar.Lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("\n got=%q\nwant=%q", got, want)
	}
	if !strings.HasSuffix(strings.TrimSpace(stdout.String()), "}") || strings.Count(stdout.String(), "\n") != 1 {
		t.Fatalf("stdout 只能包含一个 JSON 文档：%q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "完成：outcome=completed") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
}

func TestRun_EmptySelection(t *testing.T) {
	dir := assetTree(t)
	var stdout, stderr bytes.Buffer

	code := execute([]string{"run", dir, "--include", ""}, &stdout, &stderr)
	if code != exitFailed {
		t.Fatalf("空选择期望退出码 1，实际 %d", code)
	}
	ar := decodeReport(t, stdout.Bytes())
	if ar.Outcome != domain.OutcomeEmptySelection || len(ar.Lines) != 0 {
		t.Fatalf("空选择不应产生报告行：%+v", ar)
	}
	if len(ar.Diagnostics) != 1 || ar.Diagnostics[0].Text != report.MsgEmptySelection {
		t.Fatalf("诊断不正确：%+v", ar.Diagnostics)
	}
}

func TestRun_ConfigNotFound(t *testing.T) {
	restore := chdirForTest(t, t.TempDir())
	defer restore()

	var stdout, stderr bytes.Buffer
	code := execute([]string{"run"}, &stdout, &stderr)
	if code != exitFailed {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	ar := decodeReport(t, stdout.Bytes())
	if ar.ErrorCode != config.ErrCodeNotFound || ar.Outcome != domain.OutcomeFailed {
		t.Fatalf("期望 config_not_found，实际 %+v", ar)
	}
}

func TestRun_ConfigFileInCwd(t *testing.T) {
	dir := assetTree(t)
	writeAsset(t, filepath.Join(dir, config.FileName), `{"path":".","include":["animation"],"mode":"average","metrics_textfile":"metrics/meshaudit.prom"}`)
	restore := chdirForTest(t, dir)
	defer restore()

	var stdout, stderr bytes.Buffer
	if code := execute([]string{"run"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr.String())
	}
	ar := decodeReport(t, stdout.Bytes())
	want := []string{
		report.BannerAverage,
		"ANIMATION:",
		"     Number of Assets: 1",
		"     Number of Key Frames: 31",
		report.BannerEnd,
	}
	if got := report.Text(ar.Lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("\n got=%q\nwant=%q", got, want)
	}

	b, err := os.ReadFile(filepath.Join(dir, "metrics", "meshaudit.prom"))
	if err != nil {
		t.Fatalf("期望写出指标文件：%v", err)
	}
	if !strings.Contains(string(b), `meshaudit_audits_total{outcome="completed"} 1`) {
		t.Fatalf("指标内容不正确：\n%s", string(b))
	}
}

func TestRun_InvalidFlagIsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := execute([]string{"run", "--bogus"}, &stdout, &stderr); code != exitUsage {
		t.Fatalf("未知参数期望退出码 2，实际 %d", code)
	}
	if code := execute([]string{"run", "a", "b"}, &stdout, &stderr); code != exitUsage {
		t.Fatalf("多余的 path 期望退出码 2，实际 %d", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("参数错误不应输出报告：%q", stdout.String())
	}
}

func TestRun_InvalidModeIsConfigError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute([]string{"run", t.TempDir(), "--mode", "median"}, &stdout, &stderr)
	if code != exitFailed {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	if ar := decodeReport(t, stdout.Bytes()); ar.ErrorCode != config.ErrCodeInvalid {
		t.Fatalf("期望 config_invalid，实际 %q", ar.ErrorCode)
	}
}

func TestVersionCmd(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := execute([]string{"version"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("期望退出码 0，实际 %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "meshaudit ") {
		t.Fatalf("version 输出不正确：%q", stdout.String())
	}
}

func TestExitCode(t *testing.T) {
	cases := map[string]int{
		domain.OutcomeCompleted:      exitOK,
		domain.OutcomeCancelled:      exitCancelled,
		domain.OutcomeEmptySelection: exitFailed,
		domain.OutcomeFailed:         exitFailed,
	}
	for outcome, want := range cases {
		if got := exitCode(outcome); got != want {
			t.Fatalf("exitCode(%q) = %d，期望 %d", outcome, got, want)
		}
	}
}
