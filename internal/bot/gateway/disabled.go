package gateway

import (
	"context"

	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Disabled подменяет обработчики выключенной фичи: команды остаются
// в таблице, но отвечают, что функция отключена.
func Disabled(routes []Route, s Sender) []Route {
	out := make([]Route, len(routes))
	for i, r := range routes {
		r.Handle = func(ctx context.Context, cmd Command) {
			ReplyError(ctx, s, cmd.ChatID, common.ErrFeatureDisabled)
		}
		out[i] = r
	}
	return out
}

// DisabledCallbacks — то же для кнопок.
func DisabledCallbacks(routes []CallbackRoute, s Sender) []CallbackRoute {
	out := make([]CallbackRoute, len(routes))
	for i, r := range routes {
		r.Handle = func(ctx context.Context, cb Callback) {
			_ = s.Answer(ctx, cb.ID, common.UserMessage(common.ErrFeatureDisabled), true)
		}
		out[i] = r
	}
	return out
}
