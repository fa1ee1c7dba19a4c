// Package metrics — счётчики Prometheus для игр, работы, кредитов и тиков.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Названия меток.
const (
	LabelGame    = "game"
	LabelOutcome = "outcome"
	LabelCommand = "command"
	LabelTick    = "tick"
	LabelJob     = "job"
	LabelKind    = "kind"
)

// Игры
var (
	GamesPlayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_games_played_total",
			Help: "Сыгранные игры по типу и исходу",
		},
		[]string{LabelGame, LabelOutcome},
	)

	GameWagered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_games_wagered_total",
			Help: "Сумма ставок по типу игры",
		},
		[]string{LabelGame},
	)

	TaxCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_tax_collected_total",
			Help: "Собранные налоги по виду",
		},
		[]string{LabelKind},
	)
)

// Работа и кредиты
var (
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_jobs_completed_total",
			Help: "Завершённые заказы по типу работы",
		},
		[]string{LabelJob},
	)

	LoansIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_loans_issued_total",
			Help: "Выданные кредиты",
		},
	)

	LoanPenalties = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_loan_penalties_total",
			Help: "Штрафы по кредитам (doubling, unpaid)",
		},
		[]string{LabelKind},
	)
)

// Команды и тики
var (
	CommandsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_commands_total",
			Help: "Обработанные команды по имени и исходу",
		},
		[]string{LabelCommand, LabelOutcome},
	)

	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "economy_tick_duration_seconds",
			Help:    "Длительность фоновых тиков",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelTick},
	)

	TickAccountFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_tick_account_failures_total",
			Help: "Аккаунты, пропущенные тиком из-за ошибки",
		},
		[]string{LabelTick},
	)
)

// ObserveTick замеряет длительность тика: defer metrics.ObserveTick("income")().
func ObserveTick(name string) func() {
	start := time.Now()
	return func() {
		TickDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// Serve поднимает /metrics и останавливает сервер при отмене ctx.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("Метрики доступны на /metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("Сервер метрик остановлен с ошибкой")
	}
}
