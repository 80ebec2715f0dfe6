package models

import "time"

// BroadcastType scopes a broadcast message to a role audience.
type BroadcastType string

const (
	BroadcastAll           BroadcastType = "all"
	BroadcastInvestigators BroadcastType = "investigators"
	BroadcastVictims       BroadcastType = "victims"
)

// ValidBroadcastType reports whether the value is a known audience.
func ValidBroadcastType(t BroadcastType) bool {
	switch t {
	case BroadcastAll, BroadcastInvestigators, BroadcastVictims:
		return true
	}
	return false
}

// VisibleBroadcastTypes returns the broadcast audiences a role may read.
// A nil slice means every audience (admins). Unknown roles see only "all".
func VisibleBroadcastTypes(role UserRole) []BroadcastType {
	switch role {
	case RoleAdmin, RoleSuperAdmin:
		return nil
	case RoleInvestigator:
		return []BroadcastType{BroadcastAll, BroadcastInvestigators}
	case RoleVictim:
		return []BroadcastType{BroadcastAll, BroadcastVictims}
	}
	return []BroadcastType{BroadcastAll}
}

// Message is a single chat message. Receiver is null exactly when the
// message is a broadcast.
type Message struct {
	ID            int64          `db:"id" json:"id"`
	SenderID      int64          `db:"sender_id" json:"sender"`
	ReceiverID    *int64         `db:"receiver_id" json:"receiver,omitempty"`
	Content       string         `db:"content" json:"content"`
	IsBroadcast   bool           `db:"is_broadcast" json:"is_broadcast"`
	BroadcastType *BroadcastType `db:"broadcast_type" json:"broadcast_type,omitempty"`
	Timestamp     time.Time      `db:"timestamp" json:"timestamp"`
	Delivered     bool           `db:"delivered" json:"delivered"`
	Read          bool           `db:"read" json:"read"`

	SenderEmail   string  `db:"sender_email" json:"sender_email"`
	SenderName    string  `db:"sender_name" json:"sender_name"`
	ReceiverEmail *string `db:"receiver_email" json:"receiver_email,omitempty"`
	ReceiverName  *string `db:"receiver_name" json:"receiver_name,omitempty"`
}

// SendMessageRequest is the payload for creating a message or broadcast.
type SendMessageRequest struct {
	Receiver      *int64        `json:"receiver"`
	Content       string        `json:"content" validate:"required"`
	IsBroadcast   bool          `json:"is_broadcast"`
	BroadcastType BroadcastType `json:"broadcast_type"`
}

// MessageFlagsRequest updates the bounded mutable fields of a message.
type MessageFlagsRequest struct {
	Read      *bool `json:"read"`
	Delivered *bool `json:"delivered"`
}

// ChatContact is an entry of the available-correspondents listing.
type ChatContact struct {
	ID           int64    `db:"id" json:"id"`
	Email        string   `db:"email" json:"email"`
	FirstName    string   `db:"first_name" json:"first_name"`
	LastName     string   `db:"last_name" json:"last_name"`
	Role         UserRole `db:"role" json:"role"`
	Status       string   `json:"status"`
	Avatar       string   `json:"avatar"`
	IsSystemUser bool     `json:"is_system_user,omitempty"`
}
