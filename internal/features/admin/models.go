// Package admin — привилегированные действия администраторов. Доступ
// открывается паролем в личных сообщениях (Argon2id), сессия живёт
// ADMIN_SESSION_TTL, после трёх неудачных попыток вход закрыт на час.
package admin

import "time"

const (
	// MaxAttempts — неудачные попытки до блокировки входа.
	MaxAttempts = 3
	// AttemptWindow — сколько помнятся неудачные попытки.
	AttemptWindow = time.Hour
	// DefaultEffectDuration — длительность эффекта, если она не указана.
	DefaultEffectDuration = 24 * time.Hour
	// maxCached — верхняя граница размера кэшей сессий и попыток.
	maxCached = 1024
)

// Params — параметры Argon2id.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams — 64 MB, 3 прохода, 2 потока.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}
