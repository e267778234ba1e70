package bus

import (
	"encoding/json"
	"log/slog"
	"time"
)

const (
	SubjectInteractionCompleted = "concierge.interaction.completed"
	SubjectInteractionFailed    = "concierge.interaction.failed"
)

// Announcement is broadcast after an interaction finishes so downstream
// consumers (dashboards, analytics) can follow service activity. Audio
// payloads are never included.
type Announcement struct {
	InteractionID string    `json:"interaction_id"`
	Stage         string    `json:"stage,omitempty"`
	Transcript    string    `json:"transcript,omitempty"`
	Reply         string    `json:"reply,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Announcer publishes interaction outcomes. A nil Announcer is silent,
// which is the default when the bus is disabled.
type Announcer struct {
	client *Client
	log    *slog.Logger
}

func NewAnnouncer(client *Client, log *slog.Logger) *Announcer {
	if client == nil {
		return nil
	}
	return &Announcer{client: client, log: log.With(slog.String("component", "announcer"))}
}

func (a *Announcer) Completed(interactionID, transcript, reply string) {
	a.publish(SubjectInteractionCompleted, Announcement{
		InteractionID: interactionID,
		Transcript:    transcript,
		Reply:         reply,
		Timestamp:     time.Now().UTC(),
	})
}

func (a *Announcer) Failed(interactionID, stage, errText string) {
	a.publish(SubjectInteractionFailed, Announcement{
		InteractionID: interactionID,
		Stage:         stage,
		Error:         errText,
		Timestamp:     time.Now().UTC(),
	})
}

func (a *Announcer) publish(subject string, msg Announcement) {
	if a == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		a.log.Warn("failed to marshal announcement", slog.String("error", err.Error()))
		return
	}
	if err := a.client.Publish(subject, data); err != nil {
		a.log.Warn("failed to publish announcement", slog.String("error", err.Error()))
	}
}
