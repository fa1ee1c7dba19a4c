// Package efficiency — models.go описывает «приемер» игрока: ограниченный
// показатель продуктивности, от которого зависит оплата пикинга.
package efficiency

// Границы и скорость изменения показателя.
const (
	MaxScore = 150
	// DecayEvery — через сколько тиков без заказов показатель падает на 1.
	DecayEvery = 60
)

// Score — состояние показателя игрока.
type Score struct {
	Value int `json:"value"`
	// IdleTicks — тики подряд без завершённых заказов.
	IdleTicks int `json:"idle_ticks"`
	// Recent — размеры заказов, завершённых с прошлого тика.
	Recent []int `json:"recent,omitempty"`
}

// Step применяет один тик к показателю.
func (s *Score) Step() {
	if len(s.Recent) > 0 {
		total := 0
		for _, n := range s.Recent {
			total += n
		}
		// count × average / 10 == total / 10, округлённо, но не меньше 1
		growth := max((total+5)/10, 1)
		s.Value = min(s.Value+growth, MaxScore)
		s.IdleTicks = 0
	} else {
		s.IdleTicks++
		if s.IdleTicks >= DecayEvery {
			s.Value = max(s.Value-1, 0)
			s.IdleTicks = 0
		}
	}
	s.Recent = nil
}
