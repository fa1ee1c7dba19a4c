// Package work — fsm.go содержит чистые переходы автоматов сессий:
//
//	пикинг: AWAITING_SCAN → READY_TO_SUBMIT → COMPLETE
//	пакинг: AWAITING_BOX → COLLECTING → COMPLETE
//
// Случайные величины (сколько позиций отсканировано) приходят в событии,
// поэтому переход детерминирован.
package work

import (
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// EventKind — тип события.
type EventKind int

const (
	EventScan EventKind = iota
	EventSubmit
	EventChooseBox
	EventCollect
)

// Event — действие игрока над сессией.
type Event struct {
	Kind  EventKind
	Count int    // сколько позиций или товаров обработано (скан, сбор)
	Box   string // выбранная коробка
}

// Effect — что произошло в результате перехода.
type Effect int

const (
	EffectProgress Effect = iota // сессия продвинулась, фаза та же
	EffectReady                  // всё отсканировано, можно сдавать
	EffectStarted                // коробка выбрана, начался сбор
	EffectComplete               // заказ завершён, нужно заплатить
)

var (
	errWrongPhase = common.Conflict("сейчас это действие недоступно")
	errWrongBox   = common.Conflict("эта коробка не подходит по размеру, выберите другую")
	errUnknownBox = common.Validation("такой коробки нет")
	errNoVacancy  = common.Conflict("мест уже нет!")
	errUnknownJob = common.Validation("такой работы не существует!")
)

// Transition применяет событие к копии сессии. При ошибке исходная
// сессия не меняется и возвращается без изменений.
func Transition(s *Session, ev Event) (*Session, Effect, error) {
	next := s.Clone()
	switch ev.Kind {
	case EventScan:
		if s.Phase != PhaseAwaitingScan {
			return s, EffectProgress, errWrongPhase
		}
		marked := 0
		for i := range next.Positions {
			if marked >= ev.Count {
				break
			}
			if !next.Positions[i].Done {
				next.Positions[i].Done = true
				marked++
			}
		}
		if next.Pending() == 0 {
			next.Phase = PhaseReadyToSubmit
			return next, EffectReady, nil
		}
		return next, EffectProgress, nil

	case EventSubmit:
		if s.Phase != PhaseReadyToSubmit {
			return s, EffectProgress, errWrongPhase
		}
		next.Phase = PhaseComplete
		return next, EffectComplete, nil

	case EventChooseBox:
		if s.Phase != PhaseAwaitingBox {
			return s, EffectProgress, errWrongPhase
		}
		box, ok := BoxByName(ev.Box)
		if !ok {
			return s, EffectProgress, errUnknownBox
		}
		if !box.Fits(s.Target) {
			return s, EffectProgress, errWrongBox
		}
		next.Box = box.Name
		next.Phase = PhaseCollecting
		return next, EffectStarted, nil

	case EventCollect:
		if s.Phase != PhaseCollecting {
			return s, EffectProgress, errWrongPhase
		}
		next.Remaining -= min(ev.Count, next.Remaining)
		if next.Remaining == 0 {
			next.Phase = PhaseComplete
			return next, EffectComplete, nil
		}
		return next, EffectProgress, nil
	}
	return s, EffectProgress, errWrongPhase
}
