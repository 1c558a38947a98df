package subscriber

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"

	"navigate-map/internal/navigation"
)

type published struct {
	sessionID string
	fix       navigation.Fix
}

type fakePublisher struct {
	got []published
	err error
}

func (f *fakePublisher) Publish(_ context.Context, sessionID string, fix navigation.Fix) error {
	f.got = append(f.got, published{sessionID, fix})
	return f.err
}

func newTestSubscriber(p Publisher) *Subscriber {
	return NewSubscriber(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, "navigation:locations", p)
}

func TestParseFixMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"session_id":"alice","lat":10.5,"lon":106.7,"timestamp":"2024-05-01T10:00:00Z"}`, false},
		{"no timestamp", `{"session_id":"alice","lat":10.5,"lon":106.7}`, false},
		{"missing session", `{"lat":10.5,"lon":106.7}`, true},
		{"latitude out of range", `{"session_id":"alice","lat":95,"lon":106.7}`, true},
		{"longitude out of range", `{"session_id":"alice","lat":10,"lon":-181}`, true},
		{"malformed", `{"session_id":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFixMessage(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestHandleMessagePublishes(t *testing.T) {
	p := &fakePublisher{}
	s := newTestSubscriber(p)

	msg := &redis.Message{Channel: "navigation:locations", Payload: `{"session_id":"bob","lat":1,"lon":2}`}
	if err := s.handleMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(p.got) != 1 || p.got[0].sessionID != "bob" || p.got[0].fix.Lat != 1 || p.got[0].fix.Lon != 2 {
		t.Errorf("published = %+v", p.got)
	}
}

func TestHandleMessageErrors(t *testing.T) {
	p := &fakePublisher{err: errors.New("boom")}
	s := newTestSubscriber(p)

	if err := s.handleMessage(context.Background(), &redis.Message{Payload: `not json`}); err == nil {
		t.Error("malformed payload accepted")
	}
	if len(p.got) != 0 {
		t.Error("malformed payload published")
	}

	err := s.handleMessage(context.Background(), &redis.Message{Payload: `{"session_id":"bob","lat":1,"lon":2}`})
	if !errors.Is(err, p.err) {
		t.Errorf("err = %v, want wrapped publisher error", err)
	}
}
