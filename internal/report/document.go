// Package report 生产报表：进度图表（gg）、PDF（fpdf）与 Excel（excelize）。
//
// 报表面向产线现场，文字使用西班牙语；PDF 核心字体只支持 cp1252，
// 图表使用 gg 内置的 ASCII 字体，因此图表标签不带重音。
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"prodline/internal/production"
)

// Row 报表中的一条班次记录（含派生指标）
type Row struct {
	ID            string
	Timestamp     time.Time
	Shift         string
	Operator      string
	ShiftTarget   int64 // 箱
	Produced      int64 // 瓶
	Cases         float64
	CompletionPct int
	OnTrack       bool
}

// Document 报表数据
type Document struct {
	RunID   string
	Flavor  string
	Format  string
	Summary production.Summary
	Rows    []Row
}

// Build 由快照生成报表数据，班次按时间升序
func Build(s production.Snapshot) Document {
	agg := production.FromSnapshot(s)
	doc := Document{Summary: agg.Summary()}

	run, ok := agg.Run()
	if ok {
		doc.RunID = run.ID
		doc.Flavor = run.Flavor
		doc.Format = run.Format
	}

	for _, p := range agg.OrderedPartials() {
		pct := production.ShiftCompletion(p, doc.Format)
		doc.Rows = append(doc.Rows, Row{
			ID:            p.ID,
			Timestamp:     p.Timestamp,
			Shift:         p.Shift,
			Operator:      p.Operator,
			ShiftTarget:   p.ShiftTarget,
			Produced:      p.Produced,
			Cases:         production.CasesCompleted(p.Produced, doc.Format),
			CompletionPct: pct,
			OnTrack:       production.ShiftOnTrack(pct),
		})
	}
	return doc
}

// FileName 下载文件名：produccion_<批次ID|sin-id>.<ext>
func FileName(runID, ext string) string {
	if runID == "" {
		runID = "sin-id"
	}
	return fmt.Sprintf("produccion_%s.%s", runID, ext)
}

// formatThousands 以 "." 作为千位分隔符（es-AR 习惯）
func formatThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// timeLabel 表格与图表中的时间显示
func timeLabel(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01 15:04")
}
