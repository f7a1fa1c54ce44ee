// Package audit records who verified which document and what the verdict was.
// Events are transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers verdicts that may be asked for later by a
	// regulator or a disputed customer; they need long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine calls useful for debugging and
	// usage reporting; they can be sampled or expired early.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventDocumentVerified AuditEvent = "document_verified"
	EventDocumentRejected AuditEvent = "document_rejected"
	EventEdgesDetected    AuditEvent = "edges_detected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDocumentVerified: CategoryCompliance,
	EventDocumentRejected: CategoryCompliance,
	EventEdgesDetected:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Decision values recorded on verification events.
const (
	DecisionAuthentic = "authentic"
	DecisionRejected  = "rejected"
)

// Event is emitted from the HTTP layer after a document operation.
type Event struct {
	ID             uuid.UUID     `json:"id"`
	Category       EventCategory `json:"category"`
	Timestamp      time.Time     `json:"timestamp"`
	Action         string        `json:"action"`
	VerificationID string        `json:"verification_id,omitempty"`
	DocumentType   string        `json:"document_type,omitempty"`
	Decision       string        `json:"decision,omitempty"`
	Confidence     float64       `json:"confidence"`
	RequestID      string        `json:"request_id,omitempty"`
	ClientID       string        `json:"client_id,omitempty"`
	ClientIP       string        `json:"client_ip,omitempty"`
	// ClientSoftware is a coarse "name/version on os" summary of the caller's User-Agent.
	ClientSoftware string `json:"client_software,omitempty"`
}

// VerificationEvent builds the event for a finished verification.
func VerificationEvent(verificationID, documentType string, confidence float64, authentic bool) Event {
	action, decision := EventDocumentRejected, DecisionRejected
	if authentic {
		action, decision = EventDocumentVerified, DecisionAuthentic
	}
	return Event{
		Action:         string(action),
		VerificationID: verificationID,
		DocumentType:   documentType,
		Decision:       decision,
		Confidence:     confidence,
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists stored events for a verification. Sinks that only forward
// events (Kafka) do not implement it.
type Reader interface {
	ListByVerification(ctx context.Context, verificationID string) ([]Event, error)
}

// ClientSoftware summarizes a User-Agent header, capped at 64 bytes.
// Unparseable agents fall back to the raw header.
func ClientSoftware(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	if name == "" {
		return truncate(userAgent, 64)
	}
	summary := name
	if version != "" {
		summary += "/" + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return truncate(summary, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
