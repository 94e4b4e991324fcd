package audit

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/John-Robertt/meshaudit/internal/domain"
)

// Sink 接收驱动发出的每一行（诊断行与报告行），按发出顺序，带严重级别。
//
// 级别只用于展示，不影响审计流程。
type Sink interface {
	Emit(line domain.Line)
}

// MemorySink 把所有行保存在内存中（测试用）。
type MemorySink struct {
	mu    sync.Mutex
	lines []domain.Line
}

func (s *MemorySink) Emit(line domain.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

// Lines 返回已接收行的副本。
func (s *MemorySink) Lines() []domain.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Line(nil), s.lines...)
}

// Warnings 只返回 warning 级别的行文本。
func (s *MemorySink) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.lines {
		if l.Severity == domain.SeverityWarning {
			out = append(out, l.Text)
		}
	}
	return out
}

// ZapSink 把行写入结构化日志：info -> Info，warning -> Warn。
type ZapSink struct {
	Logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return ZapSink{Logger: logger}
}

func (s ZapSink) Emit(line domain.Line) {
	if s.Logger == nil {
		return
	}
	switch line.Severity {
	case domain.SeverityWarning:
		s.Logger.Warn(line.Text, zap.String("severity", line.Severity))
	default:
		s.Logger.Info(line.Text, zap.String("severity", line.Severity))
	}
}

// WriterSink 把行以纯文本写入 w（终端输出）。warning 行带 "Warning: " 前缀。
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Emit(line domain.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line.Severity == domain.SeverityWarning {
		_, _ = fmt.Fprintf(s.w, "Warning: %s\n", line.Text)
		return
	}
	_, _ = fmt.Fprintln(s.w, line.Text)
}

// Sinks 把每一行依次转发给多个 Sink。
type Sinks []Sink

func (ss Sinks) Emit(line domain.Line) {
	for _, s := range ss {
		if s != nil {
			s.Emit(line)
		}
	}
}

type nopSink struct{}

func (nopSink) Emit(domain.Line) {}
