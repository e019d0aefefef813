package services

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
)

// Activity event types, also used as routing keys.
const (
	EventAccountRegistered = "account.registered"
	EventAccountDeleted    = "account.deleted"
	EventTrackLiked        = "track.liked"
	EventTrackUnliked      = "track.unliked"
)

// EventPublisher ships activity events to a broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// Event is the JSON body of an activity message.
type Event struct {
	Type      string    `json:"type"`
	AccountID string    `json:"account_id"`
	Username  string    `json:"username,omitempty"`
	TrackID   string    `json:"track_id,omitempty"`
	At        time.Time `json:"at"`
}

// publishEvent is best-effort: a broker failure is logged and never fails the request.
func publishEvent(publisher EventPublisher, event Event) {
	if publisher == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("encode activity event", "type", event.Type, "err", err)
		return
	}
	if err := publisher.Publish(event.Type, body); err != nil {
		log.Warn("publish activity event", "type", event.Type, "err", err)
	}
}
