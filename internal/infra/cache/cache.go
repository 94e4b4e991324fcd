package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/meshaudit/internal/infra/fsx"
)

// Store 提供 <path>/cache/<provider>/ 下的文件缓存读写。
//
// 约束：
// - key 是单层文件名（不允许包含路径分隔符）
// - 写入一律原子替换（fsx.WriteFileAtomic）
// - cache/ 在本地扫描中被永久排除，缓存文件不会被当成资产
type Store struct {
	Root string // <path>（审计根目录）
}

func New(root string) Store {
	return Store{Root: filepath.Clean(strings.TrimSpace(root))}
}

// Dir 返回 provider 的缓存目录。
func (s Store) Dir(provider string) (string, error) {
	p, err := cleanProvider(provider)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "cache", p), nil
}

// Path 返回缓存文件的绝对路径。
func (s Store) Path(provider, key string) (string, error) {
	dir, err := s.Dir(provider)
	if err != nil {
		return "", err
	}
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(dir, key), nil
}

// Read 读取缓存；未命中返回 ok=false 且 err=nil。
func (s Store) Read(provider, key string) ([]byte, bool, error) {
	p, err := s.Path(provider, key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) Write(provider, key string, data []byte) error {
	dir, err := s.Dir(provider)
	if err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, key, data)
}

var keyUnsafeRE = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key 把远端 URL 映射为稳定的缓存文件名：<sha256(规范化 URL) 前 32 位 hex>_<文件名>。
//
// 规范化 URL 含 scheme、host（含端口）、clean 后的路径与 query，不同站点或不同路径不会共用同一文件。
// 文件名保留原始后缀（例如 .asset.json），便于人工排查。
func Key(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	p := path.Clean("/" + u.Path)
	if p == "/" {
		return "", fmt.Errorf("URL 缺少路径：%q", rawURL)
	}

	canon := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + p
	if u.RawQuery != "" {
		canon += "?" + u.RawQuery
	}
	sum := sha256.Sum256([]byte(canon))

	base := keyUnsafeRE.ReplaceAllString(path.Base(p), "_")
	if base == "." || base == ".." {
		base = "_"
	}
	return hex.EncodeToString(sum[:16]) + "_" + base, nil
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("非法缓存 key：%q", key)
	}
	return nil
}

var providerNameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func cleanProvider(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "", fmt.Errorf("provider 不能为空")
	}
	// 最小约束：避免路径穿越。
	if !providerNameRE.MatchString(p) {
		return "", fmt.Errorf("非法 provider：%q", p)
	}
	return p, nil
}
