package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Produccion"

// RenderXLSX 导出班次明细与汇总为 Excel
func RenderXLSX(w io.Writer, doc Document, title string, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("删除默认工作表失败: %w", err)
	}

	for i, col := range tableColumns {
		name := colName(i)
		f.SetColWidth(sheetName, name, name, col.width*0.6)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1170D6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	okStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E8F5E9"}, Pattern: 1},
	})
	lowStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FDECEA"}, Pattern: 1},
	})

	// 标题与汇总
	f.SetCellValue(sheetName, "A1", title)
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	summary := [][2]interface{}{
		{"Corrida", orDash(doc.RunID)},
		{"Sabor", orDash(doc.Flavor)},
		{"Formato", orDash(doc.Format)},
		{"Objetivo (botellas)", doc.Summary.Target},
		{"Acumulado (botellas)", doc.Summary.Accumulated},
		{"Restante (botellas)", doc.Summary.Remaining},
		{"Progreso (%)", doc.Summary.ProgressPercent},
	}
	row := 2
	for _, kv := range summary {
		f.SetCellValue(sheetName, cell("A", row), kv[0])
		f.SetCellValue(sheetName, cell("B", row), kv[1])
		row++
	}

	// 表头
	row++
	for i, col := range tableColumns {
		f.SetCellValue(sheetName, cell(colName(i), row), col.title)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(tableColumns)-1), row), headerStyle)

	// 数据行
	for _, r := range doc.Rows {
		row++
		ts := r.Timestamp
		if loc != nil {
			ts = ts.In(loc)
		}
		values := []interface{}{
			ts.Format("2006-01-02 15:04"),
			r.Shift,
			r.Operator,
			r.ShiftTarget,
			r.Produced,
			r.Cases,
			r.CompletionPct,
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		style := lowStyle
		if r.OnTrack {
			style = okStyle
		}
		f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(values)-1), row), style)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("写入 Excel 失败: %w", err)
	}
	return nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
