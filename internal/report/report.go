package report

import (
	"fmt"

	"github.com/John-Robertt/meshaudit/internal/aggregate"
	"github.com/John-Robertt/meshaudit/internal/domain"
)

// 固定横幅行。输出格式是对外约定，改动会影响下游解析。
const (
	BannerIndividual = "------------------INDIVIDUAL AUDIT RESULTS------------------"
	BannerTotal      = "------------------TOTAL AUDIT RESULTS------------------"
	BannerAverage    = "------------------AVERAGE AUDIT RESULTS------------------"
	BannerEnd        = "-------------------END OF AUDIT-----------------------------"
	BannerCancelled  = "------------------AUDIT CANCELLED------------------"
	Separator        = "------------------------------------------------------------"

	MsgEmptySelection = "PLEASE SELECT INCLUDES FIRST BEFORE RUNNING AUDITOR"
	MsgStarting       = "Starting Task: Audit Assets..."
)

// Render 把聚合结果渲染为有序的报告行（全部为 info 级别）。
//
// 只输出 sel 中的类别；Total / Average 下计数为 0 的类别整块省略。
func Render(mode domain.Mode, sel domain.Selection, res aggregate.Result) []domain.Line {
	w := &writer{lines: make([]domain.Line, 0, 64)}
	switch mode {
	case domain.Individual:
		renderIndividual(w, sel, res.Entries)
	case domain.Total:
		renderCombined(w, BannerTotal, sel, res.Values)
	case domain.Average:
		renderCombined(w, BannerAverage, sel, res.Values)
	}
	return w.lines
}

type writer struct {
	lines []domain.Line
}

func (w *writer) printf(format string, args ...any) {
	w.lines = append(w.lines, domain.Info(fmt.Sprintf(format, args...)))
}

func (w *writer) print(s string) {
	w.lines = append(w.lines, domain.Info(s))
}

func renderIndividual(w *writer, sel domain.Selection, entries []aggregate.Entry) {
	w.print(BannerIndividual)
	for _, e := range entries {
		c := e.Record.Category
		if !sel.Has(c) {
			continue
		}
		w.printf("ASSET NAME: %s --------------------------", e.Name)
		w.printf("ASSET TYPE: %s", c.Label())
		switch c {
		case domain.StaticMesh, domain.SkeletalMesh:
			m := e.Record.MeshOrZero()
			meshLines(w, m.LODCount, m.TrianglesPerLOD, m.MaterialSlotCount)
		case domain.Skeleton:
			s := e.Record.SkeletonOrZero()
			w.printf("     Number of LODs: %d", s.LODCount)
			w.printf("     Number of Bones: %d", s.BoneCount)
		case domain.Animation:
			w.printf("     Number of Key Frames: %d", e.Record.AnimationOrZero().KeyFrameCount)
		}
		w.print(Separator)
	}
	w.print(BannerEnd)
}

func renderCombined(w *writer, banner string, sel domain.Selection, values map[domain.Category]aggregate.Value) {
	w.print(banner)
	for _, c := range sel.Categories() {
		v, ok := values[c]
		if !ok || v.Count == 0 {
			continue
		}
		w.printf("%s:", c.Label())
		w.printf("     Number of Assets: %d", v.Count)
		switch c {
		case domain.StaticMesh, domain.SkeletalMesh:
			meshLines(w, v.LODCount, v.TrianglesPerLOD, v.MaterialSlotCount)
		case domain.Skeleton:
			w.printf("     Number of LODs: %d", v.LODCount)
			w.printf("     Number of Bones: %d", v.BoneCount)
		case domain.Animation:
			w.printf("     Number of Key Frames: %d", v.KeyFrameCount)
		}
	}
	w.print(BannerEnd)
}

func meshLines(w *writer, lods uint64, tris []uint64, slots uint64) {
	w.printf("     Number of LODs: %d", lods)
	for i, n := range tris {
		w.printf("        Number of Triangles on LOD[%d]: %d", i, n)
	}
	w.printf("     Number of Material Slots: %d", slots)
}

// Text 只取行文本（丢弃级别），用于纯文本输出与测试断言。
func Text(lines []domain.Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}
