package bot

import (
	"strings"
)

// CommandParser разбирает команды с префиксами !, . и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// Parsed — разобранная команда.
type Parsed struct {
	Name     string
	Args     []string
	Mentions []string
}

// ParseCommand разбирает текст на команду, аргументы и упоминания.
// Упоминания (@username) из аргументов убираются. Суффикс /cmd@bot_name
// отбрасывается.
func (p *CommandParser) ParseCommand(text string) (Parsed, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return Parsed{}, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Parsed{}, false
	}

	name := strings.ToLower(parts[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return Parsed{}, false
	}

	out := Parsed{Name: name}
	for _, part := range parts[1:] {
		if len(part) > 1 && part[0] == '@' {
			out.Mentions = append(out.Mentions, strings.TrimRight(part[1:], ",.!?"))
			continue
		}
		out.Args = append(out.Args, part)
	}
	return out, true
}
