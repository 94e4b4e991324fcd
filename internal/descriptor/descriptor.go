package descriptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"

	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/provider"
)

// Format 是描述文件的编码格式，由文件后缀决定。
type Format string

const (
	FormatJSON     Format = "json"
	FormatTOML     Format = "toml"
	FormatJSONZstd Format = "json+zstd"
)

const (
	SuffixJSON     = ".asset.json"
	SuffixTOML     = ".asset.toml"
	SuffixJSONZstd = ".asset.json.zst"
)

// Suffixes 是全部可识别的描述文件后缀（按匹配优先级：长后缀在前）。
var Suffixes = []string{SuffixJSONZstd, SuffixJSON, SuffixTOML}

// FormatOf 根据文件名后缀判断格式（大小写不敏感）。
func FormatOf(name string) (Format, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, SuffixJSONZstd):
		return FormatJSONZstd, true
	case strings.HasSuffix(lower, SuffixJSON):
		return FormatJSON, true
	case strings.HasSuffix(lower, SuffixTOML):
		return FormatTOML, true
	default:
		return "", false
	}
}

// BaseName 去掉目录与描述文件后缀，作为缺省的资产显示名。
func BaseName(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	lower := strings.ToLower(base)
	for _, s := range Suffixes {
		if strings.HasSuffix(lower, s) {
			return base[:len(base)-len(s)]
		}
	}
	return base
}

// File 是单个资产描述文件的内容。
//
// 字段是否有意义取决于 Type：
// - StaticMesh：LODs / MaterialSlots
// - SkeletalMesh：RenderData / MaterialSlots（RenderData 缺失 = 没有可渲染数据）
// - Skeleton：Bones
// - AnimSequence：SampledKeys
type File struct {
	Name          string      `json:"name" toml:"name"`
	Type          string      `json:"type" toml:"type"`
	LODs          []LOD       `json:"lods,omitempty" toml:"lods,omitempty"`
	MaterialSlots int         `json:"material_slots,omitempty" toml:"material_slots,omitempty"`
	RenderData    *RenderData `json:"render_data,omitempty" toml:"render_data,omitempty"`
	Bones         []string    `json:"bones,omitempty" toml:"bones,omitempty"`
	SampledKeys   int         `json:"sampled_keys,omitempty" toml:"sampled_keys,omitempty"`
}

type LOD struct {
	Triangles uint64 `json:"triangles" toml:"triangles"`
}

type RenderData struct {
	LODs []RenderLOD `json:"lods" toml:"lods"`
}

type RenderLOD struct {
	Sections []Section `json:"sections" toml:"sections"`
}

type Section struct {
	Triangles uint64 `json:"triangles" toml:"triangles"`
}

// Header 是只用于索引过滤的最小字段集合。
type Header struct {
	Name string `json:"name" toml:"name"`
	Type string `json:"type" toml:"type"`
}

// DecodeError 表示描述文件无法解码。
type DecodeError struct {
	Name   string
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("描述文件解码失败（%s，%s）：%v", e.Name, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrUnknownFormat 表示文件名没有可识别的描述文件后缀。
var ErrUnknownFormat = errors.New("未知的描述文件格式")

// Decode 按 name 的后缀解码完整描述文件。Name 缺省时回退到文件基名。
func Decode(name string, data []byte) (*File, error) {
	var f File
	if err := decodeInto(name, data, &f); err != nil {
		return nil, err
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Type = strings.TrimSpace(f.Type)
	if f.Name == "" {
		f.Name = BaseName(name)
	}
	return &f, nil
}

// DecodeHeader 只解码 name/type（索引阶段使用，不关心几何字段）。
func DecodeHeader(name string, data []byte) (Header, error) {
	var h Header
	if err := decodeInto(name, data, &h); err != nil {
		return Header{}, err
	}
	h.Name = strings.TrimSpace(h.Name)
	h.Type = strings.TrimSpace(h.Type)
	if h.Name == "" {
		h.Name = BaseName(name)
	}
	return h, nil
}

func decodeInto(name string, data []byte, v any) error {
	format, ok := FormatOf(name)
	if !ok {
		return &DecodeError{Name: name, Err: ErrUnknownFormat}
	}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, v)
	case FormatTOML:
		err = toml.Unmarshal(data, v)
	case FormatJSONZstd:
		var raw []byte
		raw, err = Decompress(data)
		if err == nil {
			err = json.Unmarshal(raw, v)
		}
	}
	if err != nil {
		return &DecodeError{Name: name, Format: format, Err: err}
	}
	return nil
}

// Load 读取并解码 path 指向的描述文件。
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, b)
}

// LoadHeader 读取 path 并只解码头部字段。
func LoadHeader(path string) (Header, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	return DecodeHeader(path, b)
}

// EncodeJSON 以稳定缩进输出 JSON 描述文件。
func EncodeJSON(f File) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compress 用 zstd 压缩数据（用于 .asset.json.zst）。
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Decompress 解压 zstd 数据。
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// Handle 按 Type 返回实现对应只读访问接口的句柄。
//
// 每种句柄只实现其类别所需的方法集合，避免一个类型同时满足多个类别。
func (f *File) Handle() (any, error) {
	switch f.Type {
	case domain.TypeTagStaticMesh:
		return staticMesh{f}, nil
	case domain.TypeTagSkeletalMesh:
		return skeletalMesh{f}, nil
	case domain.TypeTagSkeleton:
		return skeleton{f}, nil
	case domain.TypeTagAnimation:
		return animation{f}, nil
	default:
		return nil, fmt.Errorf("不支持的资产类型：%q", f.Type)
	}
}

type staticMesh struct{ f *File }

func (m staticMesh) Name() string           { return m.f.Name }
func (m staticMesh) LODCount() int          { return len(m.f.LODs) }
func (m staticMesh) MaterialSlotCount() int { return m.f.MaterialSlots }
func (m staticMesh) LODTriangleCount(lod int) uint64 {
	if lod < 0 || lod >= len(m.f.LODs) {
		return 0
	}
	return m.f.LODs[lod].Triangles
}

type skeletalMesh struct{ f *File }

func (m skeletalMesh) Name() string           { return m.f.Name }
func (m skeletalMesh) MaterialSlotCount() int { return m.f.MaterialSlots }
func (m skeletalMesh) RenderData() (provider.SkeletalRenderData, bool) {
	if m.f.RenderData == nil {
		return provider.SkeletalRenderData{}, false
	}
	out := provider.SkeletalRenderData{LODs: make([]provider.SkeletalLOD, 0, len(m.f.RenderData.LODs))}
	for _, lod := range m.f.RenderData.LODs {
		sl := provider.SkeletalLOD{Sections: make([]provider.RenderSection, 0, len(lod.Sections))}
		for _, s := range lod.Sections {
			sl.Sections = append(sl.Sections, provider.RenderSection{Triangles: s.Triangles})
		}
		out.LODs = append(out.LODs, sl)
	}
	return out, true
}

type skeleton struct{ f *File }

func (s skeleton) Name() string            { return s.f.Name }
func (s skeleton) ReferenceBoneCount() int { return len(s.f.Bones) }

type animation struct{ f *File }

func (a animation) Name() string         { return a.f.Name }
func (a animation) SampledKeyCount() int { return a.f.SampledKeys }
