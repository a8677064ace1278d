package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"time"

	"github.com/go-pdf/fpdf"

	pkgerrors "prodline/pkg/errors"
)

// Options 报表外观
type Options struct {
	Title    string
	Footer   string
	Logo     []byte // PNG，为空时不显示
	Location *time.Location
	Now      time.Time
}

const marginX = 14.0

// 表格列：标题与宽度（mm），合计等于 A4 可用宽度
var tableColumns = []struct {
	title string
	width float64
	align string
}{
	{"Fecha/Hora", 28, "L"},
	{"Turno", 24, "L"},
	{"Operador", 38, "L"},
	{"Obj. (cajas)", 22, "R"},
	{"Botellas", 24, "R"},
	{"Cajas", 20, "R"},
	{"% Cumpl.", 26, "R"},
}

// LoadLogo 读取并校验 PNG 标志
func LoadLogo(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &pkgerrors.ReportAssetUnavailableError{Asset: path, Err: err}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &pkgerrors.ReportAssetUnavailableError{Asset: path, Err: err}
	}
	if format != "png" || cfg.Width == 0 || cfg.Height == 0 {
		return nil, &pkgerrors.ReportAssetUnavailableError{Asset: path, Err: fmt.Errorf("不支持的图片格式 %s", format)}
	}
	return raw, nil
}

// RenderPDF 生成 A4 报表：标题与标志、汇总、累计曲线、班次柱状图、明细表、页脚。
// 图表或 PDF 生成失败时整体返回错误。
func RenderPDF(w io.Writer, doc Document, opts Options) error {
	progressPNG, err := ProgressChart(doc.Rows, opts.Location)
	if err != nil {
		return err
	}
	shiftPNG, err := ShiftChart(doc.Rows)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(marginX, 10, marginX)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(opts.Title, true)
	pdf.SetCreator("prodline", false)
	if !opts.Now.IsZero() {
		pdf.SetCreationDate(opts.Now)
	}
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()

	// ── 标题与标志 ──
	if len(opts.Logo) > 0 {
		imgOpts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("logo", imgOpts, bytes.NewReader(opts.Logo))
		pdf.ImageOptions("logo", pageW-marginX-18, 10, 18, 18, false, imgOpts, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(marginX, 18, tr(opts.Title))

	// ── 汇总 ──
	pdf.SetFont("Helvetica", "", 11)
	const summaryY = 28.0
	runID := doc.RunID
	if runID == "" {
		runID = "(sin ID)"
	}
	pdf.Text(marginX, summaryY, tr("Corrida: "+runID))
	pdf.Text(marginX, summaryY+6, tr("Sabor: "+orDash(doc.Flavor)))
	pdf.Text(marginX, summaryY+12, tr("Formato: "+orDash(doc.Format)))

	s := doc.Summary
	pdf.Text(110, summaryY, tr("Objetivo (botellas): "+formatThousands(s.Target)))
	pdf.Text(110, summaryY+6, tr("Acumulado (botellas): "+formatThousands(s.Accumulated)))
	pdf.Text(110, summaryY+12, tr(fmt.Sprintf("Restante (botellas): %s  —  Progreso: %d%%",
		formatThousands(s.Remaining), s.ProgressPercent)))

	y := summaryY + 20
	contentW := pageW - 2*marginX
	chartH := contentW * ChartHeight / ChartWidth * 0.75

	// ── 图表 ──
	for i, chart := range [][]byte{progressPNG, shiftPNG} {
		if chart == nil {
			continue
		}
		name := fmt.Sprintf("chart%d", i)
		imgOpts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(chart))
		pdf.ImageOptions(name, marginX, y, contentW, chartH, false, imgOpts, 0, "")
		y += chartH + 6
	}

	// ── 明细表 ──
	if len(doc.Rows) > 0 {
		pdf.SetXY(marginX, y)
		drawTable(pdf, tr, doc.Rows, opts.Location)
		y = pdf.GetY() + 6
	}

	// ── 页脚 ──
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(140, 140, 140)
	pdf.SetXY(marginX, y)
	pdf.CellFormat(contentW, 5, tr(opts.Footer), "", 1, "L", false, 0, "")

	if pdf.Err() {
		return fmt.Errorf("生成 PDF 失败: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("输出 PDF 失败: %w", err)
	}
	return nil
}

func drawTable(pdf *fpdf.Fpdf, tr func(string) string, rows []Row, loc *time.Location) {
	const rowH = 7.0

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(17, 112, 214)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)
	for _, col := range tableColumns {
		pdf.CellFormat(col.width, rowH, tr(col.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(33, 33, 33)
	for _, r := range rows {
		if r.OnTrack {
			pdf.SetFillColor(232, 245, 233)
		} else {
			pdf.SetFillColor(253, 236, 234)
		}
		cells := []string{
			timeLabel(r.Timestamp, loc),
			r.Shift,
			r.Operator,
			formatThousands(r.ShiftTarget),
			formatThousands(r.Produced),
			formatThousands(int64(r.Cases + 0.5)),
			fmt.Sprintf("%d%%", r.CompletionPct),
		}
		for i, col := range tableColumns {
			pdf.CellFormat(col.width, rowH, tr(cells[i]), "1", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
