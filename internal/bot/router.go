package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/metrics"
)

// Router — таблица команд и обработчиков кнопок.
type Router struct {
	commands  map[string]gateway.Route
	callbacks []gateway.CallbackRoute
}

// NewRouter создаёт пустую таблицу.
func NewRouter() *Router {
	return &Router{commands: make(map[string]gateway.Route)}
}

// Handle добавляет команды. Одно имя не может принадлежать двум обработчикам.
func (r *Router) Handle(routes ...gateway.Route) error {
	for _, route := range routes {
		if len(route.Names) == 0 || route.Handle == nil {
			return fmt.Errorf("пустой маршрут команды")
		}
		for _, name := range route.Names {
			name = strings.ToLower(name)
			if _, ok := r.commands[name]; ok {
				return fmt.Errorf("команда %q зарегистрирована дважды", name)
			}
			r.commands[name] = route
		}
	}
	return nil
}

// HandleCallbacks добавляет обработчики кнопок по префиксу данных.
func (r *Router) HandleCallbacks(routes ...gateway.CallbackRoute) error {
	for _, route := range routes {
		for _, existing := range r.callbacks {
			if existing.Prefix == route.Prefix {
				return fmt.Errorf("префикс кнопок %q зарегистрирован дважды", route.Prefix)
			}
		}
		r.callbacks = append(r.callbacks, route)
	}
	// длинные префиксы проверяются первыми
	sort.SliceStable(r.callbacks, func(i, j int) bool {
		return len(r.callbacks[i].Prefix) > len(r.callbacks[j].Prefix)
	})
	return nil
}

// Dispatch вызывает обработчик команды. false — команда не найдена
// или недоступна в этом чате.
func (r *Router) Dispatch(ctx context.Context, cmd gateway.Command) bool {
	route, ok := r.commands[cmd.Name]
	if !ok {
		metrics.CommandsHandled.WithLabelValues("unknown", "not_found").Inc()
		return false
	}
	name := route.Names[0]
	if route.Private && !cmd.IsPrivate {
		metrics.CommandsHandled.WithLabelValues(name, "private_only").Inc()
		return false
	}
	route.Handle(ctx, cmd)
	metrics.CommandsHandled.WithLabelValues(name, "handled").Inc()
	return true
}

// DispatchCallback вызывает обработчик кнопки с подходящим префиксом.
func (r *Router) DispatchCallback(ctx context.Context, cb gateway.Callback) bool {
	for _, route := range r.callbacks {
		if strings.HasPrefix(cb.Data, route.Prefix) {
			route.Handle(ctx, cb)
			return true
		}
	}
	return false
}

// Names возвращает основные имена команд (без алиасов и приватных).
func (r *Router) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for _, route := range r.commands {
		if route.Private || seen[route.Names[0]] {
			continue
		}
		seen[route.Names[0]] = true
		out = append(out, route.Names[0])
	}
	sort.Strings(out)
	return out
}
