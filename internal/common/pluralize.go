// Package common — pluralize.go форматирует числа и знаковые суммы.
package common

import "fmt"

// FormatSignedMoney создаёт строку вида "+100 монет" или "-50 монет".
func FormatSignedMoney(amount int64) string {
	if amount >= 0 {
		return "+" + FormatMoney(amount)
	}
	return FormatMoney(amount)
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
