package production

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ── 领域规则 ──

const (
	// DefaultUnitsPerPackage 无法识别的规格按 6 瓶/箱处理
	DefaultUnitsPerPackage = 6

	// OnTrackThreshold 班次完成率达到该值视为达标
	OnTrackThreshold = 58

	dayLayout = "2006-01-02"
)

// UnitsPerPackage 根据包装规格返回每箱瓶数
// 规格中的所有数字拼接后解析：1500 → 4；300/500/995 → 6；其余一律 6
func UnitsPerPackage(format string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, format)

	n, err := strconv.Atoi(digits)
	if err != nil {
		return DefaultUnitsPerPackage
	}

	switch n {
	case 1500:
		return 4
	case 300, 500, 995:
		return 6
	default:
		return DefaultUnitsPerPackage
	}
}

// CasesCompleted 瓶数换算为箱数
func CasesCompleted(produced int64, format string) float64 {
	return float64(produced) / float64(UnitsPerPackage(format))
}

// PercentOf 返回 round(100*part/whole)，whole<=0 时为 0；不做上限截断
func PercentOf(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * part / whole))
}

// ProgressPercent 批次总进度，截断到 [0,100]
func ProgressPercent(accumulated, target int64) int {
	pct := PercentOf(float64(accumulated), float64(target))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ShiftCompletion 班次完成率（箱数/班次目标），可超过 100
func ShiftCompletion(p Partial, format string) int {
	return PercentOf(CasesCompleted(p.Produced, format), float64(p.ShiftTarget))
}

// ShiftOnTrack 班次完成率是否达标
func ShiftOnTrack(percent int) bool {
	return percent >= OnTrackThreshold
}

// RunKey 由口味、规格和日期计算批次标识：<口味>_<规格>_<YYYY-MM-DD>
func RunKey(flavor, format string, day time.Time) string {
	return stripSpace(flavor) + "_" + stripSpace(format) + "_" + day.Format(dayLayout)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
