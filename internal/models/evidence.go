package models

import (
	"time"

	"github.com/lib/pq"
)

// Evidence links an uploaded file to an incident. Rows are append-only apart
// from bounded description/file updates.
type Evidence struct {
	ID          int64          `db:"id" json:"evidence_id"`
	IncidentID  int64          `db:"incident_id" json:"incident_id"`
	SubmittedBy int64          `db:"submitted_by" json:"-"`
	FilePath    string         `db:"file_path" json:"file_path"`
	Description string         `db:"description" json:"description"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	SubmittedAt time.Time      `db:"submitted_at" json:"submitted_at"`

	SubmitterEmail string `db:"submitter_email" json:"submitted_by"`
}

// EvidenceUpdateRequest carries the mutable evidence fields.
type EvidenceUpdateRequest struct {
	FilePath    *string  `json:"file_path"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}
