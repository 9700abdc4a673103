// Package events defines the password reset event stream: the versioned
// envelope, the per-stage payloads and the publisher used to put them on
// Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topic is the Kafka topic carrying every password reset event.
const Topic = "events.password.reset"

// Envelope versions.
const EnvelopeVersion = "1.0"

// Event types carried on Topic.
const (
	TypeResetRequested = "PasswordResetRequested"
	TypeCodeVerified   = "PasswordResetCodeVerified"
	TypeResetCompleted = "PasswordResetCompleted"
)

// Envelope wraps every event with identity, type and schema version so
// consumers can route and evolve independently of the payloads.
type Envelope struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Timestamp string `json:"timestamp"` // RFC3339
	Version   string `json:"version"`
	Data      any    `json:"data"`
}

// NewEnvelope wraps data in a fresh envelope stamped with the current time.
func NewEnvelope(eventType string, data any) *Envelope {
	return &Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   EnvelopeVersion,
		Data:      data,
	}
}

// ResetRequested is published when a verification code is issued. The code
// rides along for downstream delivery (email/SMS senders consume it).
type ResetRequested struct {
	Email            string `json:"email"`
	UserID           string `json:"userId"`
	Name             string `json:"name"`
	VerificationCode string `json:"verificationCode"`
}

// CodeVerified is published when a code is successfully verified.
type CodeVerified struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
}

// ResetCompleted is published when a password reset finishes.
type ResetCompleted struct {
	Email   string `json:"email"`
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
}
