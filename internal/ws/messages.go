package ws

import (
	"encoding/json"
	"time"

	"navigate-map/internal/navigation"
)

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound message types.
const (
	TypePick      = "pick"
	TypeClear     = "clear"
	TypeStart     = "start"
	TypeStop      = "stop"
	TypeStartStop = "start_stop"
	TypeMode      = "mode"
	TypeFollow    = "follow"
	TypeCamera    = "camera"
	TypePosition  = "position"
)

// Outbound message types.
const (
	TypeView     = "view"
	TypeAdvisory = "advisory"
	TypeCenter   = "center"
)

type PointPayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p PointPayload) GeoPoint() navigation.GeoPoint {
	return navigation.GeoPoint{Lat: p.Lat, Lon: p.Lon}
}

type ModePayload struct {
	Mode navigation.TravelMode `json:"mode"`
}

type CameraView string

const (
	CameraFollow   CameraView = "follow"
	CameraOverview CameraView = "overview"
)

type CameraPayload struct {
	View CameraView `json:"view"`
}

type PositionPayload struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Timestamp time.Time `json:"timestamp"`
}

func (p PositionPayload) Fix() navigation.Fix {
	return navigation.Fix{
		GeoPoint:  navigation.GeoPoint{Lat: p.Lat, Lon: p.Lon},
		Timestamp: p.Timestamp,
	}
}

type AdvisoryPayload struct {
	Message string `json:"message"`
}

func newMessage(msgType string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Data: raw}, nil
}
