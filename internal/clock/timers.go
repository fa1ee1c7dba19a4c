package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer — отменяемый отложенный вызов.
type Timer interface {
	// Stop отменяет вызов. Возвращает false, если вызов уже произошёл или отменён.
	Stop() bool
}

// Timers планирует одноразовые отложенные вызовы
// (таймаут блэкджека, ошибка телефона на пикинге).
type Timers interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealTimers работает поверх time.AfterFunc.
type RealTimers struct{}

func (RealTimers) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ManualTimers срабатывают только при Advance — для тестов.
// Вызовы выполняются синхронно в горутине, вызвавшей Advance.
type ManualTimers struct {
	mu      sync.Mutex
	clock   *FakeClock
	pending []*manualTimer
	seq     int
}

type manualTimer struct {
	owner   *ManualTimers
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManualTimers создаёт таймеры, привязанные к FakeClock.
func NewManualTimers(c *FakeClock) *ManualTimers {
	return &ManualTimers{clock: c}
}

func (m *ManualTimers) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, at: m.clock.Now().Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending возвращает число ещё не сработавших и не отменённых таймеров.
func (m *ManualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance двигает часы и выполняет все созревшие вызовы по порядку.
func (m *ManualTimers) Advance(d time.Duration) {
	m.clock.Advance(d)
	now := m.clock.Now()

	m.mu.Lock()
	var due []*manualTimer
	var rest []*manualTimer
	for _, t := range m.pending {
		switch {
		case t.stopped || t.fired:
		case !t.at.After(now):
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	m.pending = rest
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.fn()
	}
}
