// Package compliance records an append-only audit trail of quality-gate decisions.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// EventQualityReview is logged for every evaluated chatbot reply.
	EventQualityReview AuditEventType = "quality.review"
	// EventResponseRevised is logged when a flagged reply was rewritten.
	EventResponseRevised AuditEventType = "quality.response_revised"
	// EventEvaluationFailOpen is logged when the evaluator could not run.
	EventEvaluationFailOpen AuditEventType = "quality.evaluation_fail_open"
	// EventExtractionFallback is logged when medication extraction returned error sentinels.
	EventExtractionFallback AuditEventType = "extraction.fallback"
)

// AuditEvent is an immutable audit record. Message and reply text are never stored.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	UserID    string          `json:"user_id,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	// For quality reviews
	NeedsRevision   bool     `json:"needs_revision,omitempty"`
	Revised         bool     `json:"revised,omitempty"`
	Deficiencies    []string `json:"deficiencies,omitempty"`
	EvaluationError string   `json:"evaluation_error,omitempty"`
	RevisionError   string   `json:"revision_error,omitempty"`

	// For extraction fallbacks
	Reason string `json:"reason,omitempty"`
}

// QualityReview summarises how one reply went through the quality gate.
type QualityReview struct {
	UserID          string
	NeedsRevision   bool
	Revised         bool
	Deficiencies    []string
	EvaluationError error
	RevisionError   error
}

// AuditService handles audit logging.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: time.Now}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO quality_audit_events (
			id, event_type, user_id, subject, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.UserID),
		nullString(event.Subject),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogQualityReview logs the gate decision for one reply. The event type
// reflects the most notable thing that happened.
func (s *AuditService) LogQualityReview(ctx context.Context, review QualityReview) error {
	details := AuditDetails{
		NeedsRevision: review.NeedsRevision,
		Revised:       review.Revised,
		Deficiencies:  review.Deficiencies,
	}
	if review.EvaluationError != nil {
		details.EvaluationError = review.EvaluationError.Error()
	}
	if review.RevisionError != nil {
		details.RevisionError = review.RevisionError.Error()
	}
	detailsJSON, _ := json.Marshal(details)

	eventType := EventQualityReview
	switch {
	case review.EvaluationError != nil:
		eventType = EventEvaluationFailOpen
	case review.Revised:
		eventType = EventResponseRevised
	}

	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		UserID:    review.UserID,
		Details:   detailsJSON,
	})
}

// LogExtractionFallback logs an extraction that degraded to error sentinels.
// imageDigest identifies the scan without storing it.
func (s *AuditService) LogExtractionFallback(ctx context.Context, imageDigest string, cause error) error {
	details := AuditDetails{Reason: "unknown"}
	if cause != nil {
		details.Reason = cause.Error()
	}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventExtractionFallback,
		Subject:   imageDigest,
		Details:   detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := `
		SELECT id, event_type, user_id, subject, details, created_at
		FROM quality_audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var userID, subject sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.EventType, &userID, &subject, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.UserID = userID.String
		e.Subject = subject.String
		e.Details = json.RawMessage(details)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	UserID    string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
