// Package members — models.go описывает участника чата.
// JoinedAt — первое появление в чате, от него считается стаж для кредитов.
package members

import "time"

// Member — участник чата.
type Member struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile — данные из мессенджера для регистрации или обновления.
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName возвращает @username или имя.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}
