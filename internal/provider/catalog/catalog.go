package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/John-Robertt/meshaudit/internal/descriptor"
	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/infra/cache"
	providerx "github.com/John-Robertt/meshaudit/internal/provider"
)

const cacheNamespace = "catalog"

// Provider 实现基于 HTML 目录页的远端资产索引。
//
// 目录页约定：每个资产一行 <tr data-asset-type="StaticMesh">，行内第一个 <a href> 指向描述文件，
// 锚文本为显示名。根范围 = 描述文件 URL 路径前缀。
//
// 约束：
// - Query 每次都重新抓取目录页（目录页不缓存）
// - Resolve 先查 <path>/cache/catalog/，未命中再抓取；只有解码成功的内容才写入缓存
// - 不做重试/限速（由 httpx.Transport 统一控制）
type Provider struct {
	indexURL string
	client   *http.Client
	store    cache.Store
	log      *zap.Logger
}

func New(indexURL string, client *http.Client, store cache.Store, log *zap.Logger) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client 不能为空")
	}
	u, err := url.Parse(strings.TrimSpace(indexURL))
	if err != nil {
		return nil, fmt.Errorf("catalog_url 无效：%w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("catalog_url 必须是 http(s) 绝对地址：%q", indexURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{indexURL: u.String(), client: client, store: store, log: log.Named("catalog")}, nil
}

func (p *Provider) Name() string { return "catalog" }

// Entry 是目录页中的一行。
type Entry struct {
	Name    string
	TypeTag string
	URL     string
	// Path 是描述文件相对目录页所在目录的路径，用于根范围匹配与稳定排序。
	Path string
}

func (p *Provider) Query(ctx context.Context, q domain.Query) ([]domain.AssetRef, error) {
	html, err := fetchURL(ctx, p.client, p.indexURL)
	if err != nil {
		return nil, err
	}
	entries, err := ParseIndex(html, p.indexURL)
	if err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(q.TypeTags))
	for _, tag := range q.TypeTags {
		want[tag] = struct{}{}
	}
	root := cleanRoot(q.Root)

	refs := make([]domain.AssetRef, 0, len(entries))
	for _, e := range entries {
		if len(want) > 0 {
			if _, ok := want[e.TypeTag]; !ok {
				continue
			}
		}
		if !inScope(e.Path, root, q.Recursive) {
			continue
		}
		refs = append(refs, domain.AssetRef{
			Name:     e.Name,
			TypeTag:  e.TypeTag,
			Location: e.URL,
			RelPath:  e.Path,
		})
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].RelPath < refs[j].RelPath })
	p.log.Debug("目录查询完成", zap.String("root", root), zap.Int("rows", len(entries)), zap.Int("assets", len(refs)))
	return refs, nil
}

func (p *Provider) Resolve(ctx context.Context, ref domain.AssetRef) (any, error) {
	key, err := cache.Key(ref.Location)
	if err != nil {
		return nil, err
	}
	// 缺省显示名取自 URL 路径，而不是缓存 key。
	name := key
	if u, err := url.Parse(ref.Location); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}

	if b, ok, err := p.store.Read(cacheNamespace, key); err != nil {
		p.log.Warn("读取缓存失败，改为在线获取", zap.String("key", key), zap.Error(err))
	} else if ok {
		if f, err := descriptor.Decode(name, b); err == nil {
			return f.Handle()
		}
		// 缓存内容损坏：忽略并重新获取。
		p.log.Warn("缓存内容无法解码，改为在线获取", zap.String("key", key))
	}

	b, err := fetchURL(ctx, p.client, ref.Location)
	if err != nil {
		return nil, err
	}
	f, err := descriptor.Decode(name, b)
	if err != nil {
		return nil, err
	}
	if err := p.store.Write(cacheNamespace, key, b); err != nil {
		p.log.Warn("写入缓存失败", zap.String("key", key), zap.Error(err))
	}
	return f.Handle()
}

// ParseIndex 把目录页 HTML 解析为条目列表（纯函数：只依赖 html + pageURL）。
//
// 缺少 href 或 href 不是描述文件后缀的行会被忽略。
func ParseIndex(html []byte, pageURL string) ([]Entry, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	// 条目路径相对目录页所在目录（目录页位于站点根时即为完整路径）。
	var dir string
	if pu, err := url.Parse(pageURL); err == nil {
		dir = strings.Trim(path.Dir(path.Clean("/"+pu.Path)), "/")
	}

	entries := make([]Entry, 0, 64)
	doc.Find("tr[data-asset-type]").Each(func(_ int, row *goquery.Selection) {
		tag, _ := row.Attr("data-asset-type")
		a := row.Find("a[href]").First()
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := resolveURL(pageURL, href)
		u, err := url.Parse(abs)
		if err != nil {
			return
		}
		if _, ok := descriptor.FormatOf(u.Path); !ok {
			return
		}
		name := normSpace(a.Text())
		if name == "" {
			name = descriptor.BaseName(u.Path)
		}
		p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
		if dir != "" {
			p = strings.TrimPrefix(p, dir+"/")
		}
		entries = append(entries, Entry{
			Name:    name,
			TypeTag: strings.TrimSpace(tag),
			URL:     abs,
			Path:    p,
		})
	})
	return entries, nil
}

func cleanRoot(root string) string {
	return strings.Trim(path.Clean("/"+strings.TrimSpace(root)), "/")
}

// inScope 判断 p 是否位于 root 之下；recursive=false 时只接受 root 的直接子项。
func inScope(p, root string, recursive bool) bool {
	rest := p
	if root != "" {
		if !strings.HasPrefix(p, root+"/") {
			return false
		}
		rest = strings.TrimPrefix(p, root+"/")
	}
	return recursive || !strings.Contains(rest, "/")
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		loc := strings.TrimSpace(resp.Header.Get("Location"))
		return nil, &providerx.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: loc}
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
