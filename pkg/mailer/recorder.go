package mailer

import (
	"context"
	"sync"
)

// Message is one email captured by Recorder.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Recorder is an in-memory Notifier. Setting Err makes every Send fail.
type Recorder struct {
	mu       sync.Mutex
	Err      error
	messages []Message
}

func (r *Recorder) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if to == "" {
		return ErrNoRecipient
	}
	r.messages = append(r.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
