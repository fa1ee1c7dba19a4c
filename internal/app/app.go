// Package app собирает всё приложение. app.go — точка сборки бота:
// Telegram API, ядро экономики, фильтры и маршрутизация команд.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot"
	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/filters"
	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/middleware"
	"github.com/sahaproshurik/bazarcikpmbot/internal/config"
)

// App содержит все компоненты процесса бота.
type App struct {
	*Core
	Bot    *bot.Bot
	BotAPI *tgbotapi.BotAPI
}

// New создаёт и связывает компоненты приложения.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	sender := bot.NewSender(botAPI)

	// === 2. Ядро экономики ===
	core, err := NewCore(ctx, cfg, sender)
	if err != nil {
		return nil, err
	}

	// === 3. Маршруты ===
	router := bot.NewRouter()
	routes, callbacks := core.Routes()
	if err := router.Handle(routes...); err != nil {
		core.Close()
		return nil, err
	}
	if err := router.HandleCallbacks(callbacks...); err != nil {
		core.Close()
		return nil, err
	}

	// === 4. Бот ===
	b, err := bot.New(bot.Options{
		API:           botAPI,
		Sender:        sender,
		Router:        router,
		Filter:        filters.NewChatFilter(cfg.EconomyChatID, core.Members, botAPI, sender),
		RateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, core.Clock),
		Members:       core.Members,
		NewMembers:    core.NewMembers(),
		EconomyChatID: cfg.EconomyChatID,
		MaxInflight:   cfg.BotMaxInflight,
		UpdateTimeout: cfg.BotUpdateTimeoutSeconds,
	})
	if err != nil {
		core.Close()
		return nil, err
	}

	return &App{Core: core, Bot: b, BotAPI: botAPI}, nil
}
