package gateway

import (
	"context"
	"sync"
)

// Recorder — Sender для тестов: запоминает всё отправленное.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
	Answers  []string
	nextID   int
}

func (r *Recorder) Send(_ context.Context, m Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, m)
	if m.EditID != 0 {
		return m.EditID, nil
	}
	r.nextID++
	return r.nextID, nil
}

func (r *Recorder) Answer(_ context.Context, _ string, text string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Answers = append(r.Answers, text)
	return nil
}

// Last возвращает последнее сообщение.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}
	}
	return r.Messages[len(r.Messages)-1]
}
