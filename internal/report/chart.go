package report

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/fogleman/gg"
)

// 图表尺寸（像素）
const (
	ChartWidth  = 900
	ChartHeight = 420

	padLeft   = 80.0
	padRight  = 30.0
	padTop    = 50.0
	padBottom = 60.0
)

type plotArea struct {
	x0, y0, w, h float64
}

func newPlotArea(width, height int) plotArea {
	return plotArea{
		x0: padLeft,
		y0: padTop,
		w:  float64(width) - padLeft - padRight,
		h:  float64(height) - padTop - padBottom,
	}
}

func (p plotArea) bottom() float64 { return p.y0 + p.h }

// niceMax 向上取整到 1/2/5 × 10^n，作为 y 轴上限
func niceMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

func drawFrame(dc *gg.Context, area plotArea, title string, yMax float64) {
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB255(33, 33, 33)
	dc.DrawStringAnchored(title, float64(dc.Width())/2, padTop/2, 0.5, 0.5)

	// 水平网格与 y 轴刻度
	const ticks = 5
	dc.SetLineWidth(1)
	for i := 0; i <= ticks; i++ {
		y := area.bottom() - area.h*float64(i)/ticks
		dc.SetRGB255(225, 225, 225)
		dc.DrawLine(area.x0, y, area.x0+area.w, y)
		dc.Stroke()

		dc.SetRGB255(90, 90, 90)
		label := formatThousands(int64(math.Round(yMax * float64(i) / ticks)))
		dc.DrawStringAnchored(label, area.x0-8, y, 1, 0.5)
	}

	dc.SetRGB255(90, 90, 90)
	dc.DrawLine(area.x0, area.y0, area.x0, area.bottom())
	dc.DrawLine(area.x0, area.bottom(), area.x0+area.w, area.bottom())
	dc.Stroke()
}

// labelStep 标签过多时隔几个显示一个
func labelStep(n int) int {
	const maxLabels = 8
	if n <= maxLabels {
		return 1
	}
	return int(math.Ceil(float64(n) / maxLabels))
}

// ProgressChart 累计产量折线图（瓶），按时间升序；无记录时返回 nil
func ProgressChart(rows []Row, loc *time.Location) ([]byte, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	cumulative := make([]float64, len(rows))
	var acc int64
	for i, r := range rows {
		acc += r.Produced
		cumulative[i] = float64(acc)
	}

	dc := gg.NewContext(ChartWidth, ChartHeight)
	area := newPlotArea(ChartWidth, ChartHeight)
	yMax := niceMax(cumulative[len(cumulative)-1])
	drawFrame(dc, area, "Avance de produccion - acumulado (botellas)", yMax)

	point := func(i int) (float64, float64) {
		x := area.x0 + area.w/2
		if len(rows) > 1 {
			x = area.x0 + area.w*float64(i)/float64(len(rows)-1)
		}
		y := area.bottom() - area.h*cumulative[i]/yMax
		return x, y
	}

	dc.SetRGB255(17, 112, 214)
	dc.SetLineWidth(3)
	for i := range rows {
		x, y := point(i)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	step := labelStep(len(rows))
	for i, r := range rows {
		x, y := point(i)
		dc.SetRGB255(17, 112, 214)
		dc.DrawCircle(x, y, 4)
		dc.Fill()

		if i%step == 0 || i == len(rows)-1 {
			dc.SetRGB255(90, 90, 90)
			dc.DrawStringAnchored(timeLabel(r.Timestamp, loc), x, area.bottom()+18, 0.5, 0.5)
		}
	}

	return encodePNG(dc)
}

// ShiftChart 各班次完成箱数与班次目标对比柱状图；达标为绿色，否则为橙色
func ShiftChart(rows []Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var top float64
	for _, r := range rows {
		top = math.Max(top, math.Max(r.Cases, float64(r.ShiftTarget)))
	}

	dc := gg.NewContext(ChartWidth, ChartHeight)
	area := newPlotArea(ChartWidth, ChartHeight)
	yMax := niceMax(top)
	drawFrame(dc, area, "Cumplimiento por turno (cajas vs objetivo)", yMax)

	slot := area.w / float64(len(rows))
	barW := math.Min(slot*0.6, 60)
	step := labelStep(len(rows))

	for i, r := range rows {
		cx := area.x0 + slot*(float64(i)+0.5)

		h := area.h * r.Cases / yMax
		if r.OnTrack {
			dc.SetRGB255(46, 160, 67)
		} else {
			dc.SetRGB255(230, 126, 34)
		}
		dc.DrawRectangle(cx-barW/2, area.bottom()-h, barW, h)
		dc.Fill()

		// 班次目标
		ty := area.bottom() - area.h*float64(r.ShiftTarget)/yMax
		dc.SetRGB255(33, 33, 33)
		dc.SetLineWidth(2)
		dc.DrawLine(cx-barW/2-6, ty, cx+barW/2+6, ty)
		dc.Stroke()

		dc.DrawStringAnchored(fmt.Sprintf("%d%%", r.CompletionPct), cx, area.bottom()-h-10, 0.5, 0.5)
		if i%step == 0 || i == len(rows)-1 {
			dc.SetRGB255(90, 90, 90)
			dc.DrawStringAnchored(asciiOnly(r.Shift), cx, area.bottom()+18, 0.5, 0.5)
		}
	}

	return encodePNG(dc)
}

// asciiOnly 内置字体只有 ASCII 字形，其余字符替换为 '?'
func asciiOnly(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r > 126 || r < 32 {
			out[i] = '?'
		}
	}
	if len(out) > 14 {
		out = append(out[:13], '.')
	}
	return string(out)
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("编码图表 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
