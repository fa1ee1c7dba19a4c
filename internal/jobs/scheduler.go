// Package jobs управляет фоновыми тиками (cron). Каждый тик выполняется
// под мировым замком: команды игроков ждут, пока тик обходит аккаунты.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/metrics"
)

// Tick — фоновая задача. Run возвращает короткую сводку для логов и админа.
type Tick struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (string, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron  *cron.Cron
	guard *concurrency.Guard
	ticks map[string]Tick
}

// NewScheduler создаёт планировщик в часовом поясе loc.
func NewScheduler(loc *time.Location, guard *concurrency.Guard) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(loc)),
		guard: guard,
		ticks: make(map[string]Tick),
	}
}

// Register добавляет тик. Повторная регистрация имени заменяет тик.
func (s *Scheduler) Register(t Tick) {
	s.ticks[t.Name] = t
}

// TickNames — имена тиков по алфавиту.
func (s *Scheduler) TickNames() []string {
	names := make([]string, 0, len(s.ticks))
	for n := range s.ticks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunNow выполняет тик сразу, под мировым замком.
func (s *Scheduler) RunNow(ctx context.Context, name string) (string, error) {
	t, ok := s.ticks[name]
	if !ok {
		return "", common.NotFound("тик %q не найден", name)
	}
	var summary string
	err := s.guard.Exclusive(func() error {
		defer metrics.ObserveTick(name)()
		var err error
		summary, err = t.Run(ctx)
		return err
	})
	return summary, err
}

// Start ставит все тики в расписание и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, name := range s.TickNames() {
		t := s.ticks[name]
		if _, err := s.cron.AddFunc(t.Spec, func() {
			logger := log.WithField("tick", t.Name)
			logger.Debug("[CRON] Старт тика")
			summary, err := s.RunNow(ctx, t.Name)
			if err != nil {
				logger.WithError(err).Error("[CRON] Ошибка тика")
				return
			}
			logger.WithField("summary", summary).Debug("[CRON] Тик завершён")
		}); err != nil {
			return fmt.Errorf("расписание тика %s (%q): %w", t.Name, t.Spec, err)
		}
	}
	s.cron.Start()
	log.WithField("ticks", len(s.ticks)).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт выполняющиеся тики.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
