package subscriber

import (
	"errors"
	"fmt"
	"time"

	"navigate-map/internal/navigation"
)

// FixMessage represents any message received in the locations pub/sub channel.
type FixMessage struct {
	SessionID string    `json:"session_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *FixMessage) Validate() error {
	if m.SessionID == "" {
		return errors.New("missing session_id")
	}
	if err := m.Fix().Validate(); err != nil {
		return fmt.Errorf("session %q: %w", m.SessionID, err)
	}
	return nil
}

func (m *FixMessage) Fix() navigation.Fix {
	return navigation.Fix{
		GeoPoint:  navigation.GeoPoint{Lat: m.Lat, Lon: m.Lon},
		Timestamp: m.Timestamp,
	}
}
