package models

import "time"

// Activity actions recorded by the audit trail.
const (
	ActionLogin          = "LOGIN"
	ActionRegister       = "REGISTER"
	ActionIncidentCreate = "INCIDENT_CREATE"
	ActionIncidentUpdate = "INCIDENT_UPDATE"
	ActionIncidentDelete = "INCIDENT_DELETE"
	ActionCaseAssign     = "CASE_ASSIGN"
	ActionCaseReassign   = "CASE_REASSIGN"
	ActionCaseUpdate     = "CASE_UPDATE"
	ActionEvidenceAdd    = "EVIDENCE_ADD"
	ActionEvidenceUpdate = "EVIDENCE_UPDATE"
	ActionEvidenceDelete = "EVIDENCE_DELETE"
	ActionMessageSend    = "MESSAGE_SEND"
	ActionUserUpdate     = "USER_UPDATE"
	ActionUserDelete     = "USER_DELETE"
)

// Target tables referenced by activity rows.
const (
	TargetIncidents = "incidents"
	TargetEvidence  = "evidence"
	TargetMessages  = "messages"
	TargetUsers     = "users"
)

// ActivityLog is a free-form, append-only audit trail entry. Writes are
// best-effort and never fail the request that produced them.
type ActivityLog struct {
	ID          int64     `db:"id" json:"log_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Action      string    `db:"action" json:"action"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	TargetTable string    `db:"target_table" json:"target_table"`
	TargetID    *int64    `db:"target_id" json:"target_id,omitempty"`

	UserEmail string `db:"user_email" json:"user"`
}
