package work

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type brand struct {
	Name  string
	Items []string
}

// sportItems — ассортимент склада.
var sportItems = []brand{
	{"GymBeam", []string{"Протеиновый батончик", "Креатин", "BCAA", "Коллаген"}},
	{"BeastPink", []string{"Лосины", "Спортивные шорты", "Шейкер"}},
	{"VanaVita", []string{"Гейнер", "Витамины B", "Коллаген для суставов"}},
	{"XBEAM", []string{"Ремни для жима", "Фитнес-трекеры", "Протеиновые батончики"}},
	{"STRIX", []string{"Энергетические гели", "Силовые тренажеры"}},
	{"BSN", []string{"Гейнер", "Креатин моногидрат", "БЦАА"}},
	{"Muscletech", []string{"Гейнер", "Креатин моногидрат", "Протеиновые батончики"}},
	{"NOW Foods", []string{"Омега-3", "Витамин C", "Л-карнитин"}},
	{"The Protein Works", []string{"Протеиновый коктейль", "Шейкер", "Гейнер"}},
	{"Universal", []string{"Гейнер", "Протеиновый коктейль", "Креатин"}},
}

const (
	aisles = "BC"
	levels = "ABCDEFGHJ"
)

// MaxOrderSize — максимум позиций в заказе и товаров на пакинге.
const MaxOrderSize = 30

// Box — категория коробки на пакинге.
type Box struct {
	Name string
	Min  int
	Max  int
}

// Fits — помещается ли count товаров.
func (b Box) Fits(count int) bool {
	return count >= b.Min && count <= b.Max
}

func (b Box) Label() string {
	return fmt.Sprintf("%s (%d-%d)", b.Name, b.Min, b.Max)
}

// Boxes — пять размеров коробок, вместе покрывают 1..30.
var Boxes = []Box{
	{Name: "S", Min: 1, Max: 5},
	{Name: "M", Min: 6, Max: 10},
	{Name: "L", Min: 11, Max: 18},
	{Name: "XL", Min: 19, Max: 24},
	{Name: "XXL", Min: 25, Max: 30},
}

// BoxByName ищет коробку по имени.
func BoxByName(name string) (Box, bool) {
	for _, b := range Boxes {
		if b.Name == name {
			return b, true
		}
	}
	return Box{}, false
}

// payTier — диапазон оплаты пикинга для приемера ниже Below.
type payTier struct {
	Below    int
	Min, Max int64
}

var pickingTiers = []payTier{
	{Below: 60, Min: 50, Max: 10000},
	{Below: 80, Min: 10000, Max: 20000},
	{Below: 120, Min: 20000, Max: 50000},
	{Below: 1 << 30, Min: 50000, Max: 100000},
}

// Оплата пакинга не зависит от приемера.
const (
	packingPayMin int64 = 1000
	packingPayMax int64 = 8000
)

// Работы, на которые «мест уже нет».
var unavailableJobs = map[string]bool{
	"баление": true,
	"бафер":   true,
	"боксы":   true,
	"вратки":  true,
}

// ParseKind разбирает название работы. Пустое название — случайная работа.
func ParseKind(name string) (Kind, bool, error) {
	switch name {
	case "":
		return "", true, nil
	case "пикинг", "picking":
		return KindPicking, false, nil
	case "пакинг", "packing":
		return KindPacking, false, nil
	}
	if unavailableJobs[name] {
		return "", false, errNoVacancy
	}
	return "", false, errUnknownJob
}

var hundred = decimal.NewFromInt(100)
