// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, работа с часовым поясом.
package common

import (
	"fmt"
	"time"
)

// Pluralize выбирает форму слова для числа n по правилам русского языка.
//
// Примеры:
//
//	Pluralize(1, "монета", "монеты", "монет")  → "монета"
//	Pluralize(3, "монета", "монеты", "монет")  → "монеты"
//	Pluralize(11, "монета", "монеты", "монет") → "монет"
func Pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeCoins возвращает форму слова «монета».
func PluralizeCoins(n int64) string {
	return Pluralize(n, "монета", "монеты", "монет")
}

// PluralizeDays возвращает форму слова «день».
func PluralizeDays(n int) string {
	return Pluralize(int64(n), "день", "дня", "дней")
}

// FormatMoney форматирует сумму: FormatMoney(2350) → "2 350 монет".
func FormatMoney(amount int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(amount), PluralizeCoins(amount))
}

// LoadLocation загружает часовой пояс, при ошибке — фиксированный UTC+3.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// FormatDateTime форматирует время как "02.01.2006 15:04" в заданном поясе.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// FormatDuration выводит длительность как "2ч 05м" или "45с".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%dс", int(d.Seconds()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dм", m)
	}
	return fmt.Sprintf("%dч %02dм", h, m)
}
