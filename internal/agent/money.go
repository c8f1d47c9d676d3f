package agent

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount форматирует сумму с индийской группировкой разрядов (1,23,456.78).
// Остается не больше двух знаков после точки, хвостовые нули отбрасываются.
func FormatAmount(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	text := d.String()
	intPart, fracPart, hasFrac := strings.Cut(text, ".")

	grouped := groupIndian(intPart)
	if hasFrac {
		return sign + grouped + "." + fracPart
	}
	return sign + grouped
}

// Rupees добавляет знак рупии к FormatAmount.
func Rupees(v float64) string {
	return "₹" + FormatAmount(v)
}

// RupeesWhole округляет до целых рупий перед форматированием.
func RupeesWhole(v float64) string {
	return Rupees(roundWhole(v))
}

// 12345678 -> 1,23,45,678
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}

	return strings.Join(parts, ",") + "," + tail
}

// roundWhole округляет половину от нуля.
func roundWhole(v float64) float64 {
	return decimal.NewFromFloat(v).Round(0).InexactFloat64()
}
