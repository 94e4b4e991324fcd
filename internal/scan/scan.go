package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/meshaudit/internal/descriptor"
)

// File 是扫描得到的一个描述文件（只做 stat，不读内容）。
type File struct {
	AbsPath string
	// RelPath 相对 base，统一使用 "/" 分隔（便于跨平台稳定排序与展示）。
	RelPath string
	Base    string
	Format  descriptor.Format
	Size    int64
	ModUnix int64
}

// ScopeError 表示根范围不合法（越出 base 或不是目录）。
type ScopeError struct {
	Scope string
	Err   error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("根范围不合法：%q：%v", e.Scope, e.Err)
}

func (e *ScopeError) Unwrap() error { return e.Err }

// ScanDescriptors 扫描 <base>/<scope> 下的资产描述文件，并应用目录排除规则。
//
// 规则（硬约束）：
// - 永久排除：<base>/cache/
// - excludeDirs：来自配置文件，均视为相对 base 的路径（若是绝对路径，则按绝对路径处理）
// - recursive=false 时只看 scope 目录的直接子文件
// - scope 必须位于 base 之内
func ScanDescriptors(base, scope string, recursive bool, excludeDirs []string) ([]File, error) {
	base = filepath.Clean(base)
	root := base
	if s := strings.TrimSpace(scope); s != "" {
		root = filepath.Join(base, filepath.FromSlash(s))
	}
	if rel, err := filepath.Rel(base, root); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, &ScopeError{Scope: scope, Err: fmt.Errorf("越出扫描根目录")}
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, &ScopeError{Scope: scope, Err: err}
	}
	if !st.IsDir() {
		return nil, &ScopeError{Scope: scope, Err: fmt.Errorf("不是目录")}
	}

	excluded := buildExcluded(base, excludeDirs)

	files := make([]File, 0, 128)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		format, ok := descriptor.FormatOf(name)
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}

		files = append(files, File{
			AbsPath: path,
			RelPath: filepath.ToSlash(rel),
			Base:    descriptor.BaseName(name),
			Format:  format,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func buildExcluded(base string, excludeDirs []string) []string {
	excluded := make([]string, 0, 1+len(excludeDirs))
	excluded = append(excluded, filepath.Clean(filepath.Join(base, "cache")))

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 base。
		excluded = append(excluded, filepath.Clean(filepath.Join(base, x)))
	}

	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
