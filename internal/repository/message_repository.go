package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cimas-project/cimas-api/internal/models"
)

const messageColumns = `m.id, m.sender_id, m.receiver_id, m.content, m.is_broadcast, m.broadcast_type,
	m.timestamp, m.delivered, m.read,
	s.email AS sender_email, s.first_name || ' ' || s.last_name AS sender_name,
	r.email AS receiver_email, r.first_name || ' ' || r.last_name AS receiver_name`

const messageJoins = `FROM messages m
	JOIN users s ON s.id = m.sender_id
	LEFT JOIN users r ON r.id = m.receiver_id`

// MessageRepository provides database access for chat messages and
// broadcasts.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new instance of MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// FindByID returns a message with sender and receiver resolved.
func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE m.id = $1 LIMIT 1", messageColumns, messageJoins)
	var msg models.Message
	if err := r.db.GetContext(ctx, &msg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find message by id: %w", err)
	}
	return &msg, nil
}

// Create inserts a message and populates the generated ID.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO messages (sender_id, receiver_id, content, is_broadcast, broadcast_type, timestamp, delivered, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		msg.SenderID, msg.ReceiverID, msg.Content, msg.IsBroadcast, msg.BroadcastType,
		msg.Timestamp, msg.Delivered, msg.Read,
	).Scan(&msg.ID); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// UpdateFlags persists the read/delivered flags of a message.
func (r *MessageRepository) UpdateFlags(ctx context.Context, id int64, read, delivered bool) error {
	const query = `UPDATE messages SET read = $2, delivered = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, read, delivered); err != nil {
		return fmt.Errorf("update message flags: %w", err)
	}
	return nil
}

// Conversation returns the direct messages exchanged between two users in
// chronological order. Broadcasts are excluded.
func (r *MessageRepository) Conversation(ctx context.Context, userA, userB int64) ([]models.Message, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE m.is_broadcast = FALSE
		  AND ((m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1))
		ORDER BY m.timestamp ASC`, messageColumns, messageJoins)
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, userA, userB); err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return msgs, nil
}

// Inbox returns every direct message sent or received by the user in
// chronological order.
func (r *MessageRepository) Inbox(ctx context.Context, userID int64) ([]models.Message, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE m.is_broadcast = FALSE AND (m.sender_id = $1 OR m.receiver_id = $1)
		ORDER BY m.timestamp ASC`, messageColumns, messageJoins)
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, userID); err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	return msgs, nil
}

// Broadcasts returns broadcast messages. A nil types slice returns every
// audience. newestFirst reverses the chronological order for feed views.
func (r *MessageRepository) Broadcasts(ctx context.Context, types []models.BroadcastType, newestFirst bool) ([]models.Message, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE m.is_broadcast = TRUE", messageColumns, messageJoins)
	var args []interface{}
	if types != nil {
		values := make([]string, len(types))
		for i, t := range types {
			values[i] = string(t)
		}
		args = append(args, pq.Array(values))
		query += fmt.Sprintf(" AND m.broadcast_type = ANY($%d)", len(args))
	}
	if newestFirst {
		query += " ORDER BY m.timestamp DESC"
	} else {
		query += " ORDER BY m.timestamp ASC"
	}

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, fmt.Errorf("load broadcasts: %w", err)
	}
	return msgs, nil
}

// AdminHasMessaged reports whether any admin user has sent a direct message
// to the given user. Investigators may only initiate chat with admins who
// contacted them first.
func (r *MessageRepository) AdminHasMessaged(ctx context.Context, adminID, userID int64) (bool, error) {
	const query = `SELECT COUNT(*) FROM messages m
		JOIN users s ON s.id = m.sender_id
		WHERE m.is_broadcast = FALSE AND m.sender_id = $1 AND m.receiver_id = $2
		  AND (s.role = 'admin' OR s.is_superuser = TRUE)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, adminID, userID); err != nil {
		return false, fmt.Errorf("check admin contact: %w", err)
	}
	return count > 0, nil
}

// AdminsWhoMessaged returns the admin users that have sent direct messages
// to the given user.
func (r *MessageRepository) AdminsWhoMessaged(ctx context.Context, userID int64) ([]models.ChatContact, error) {
	const query = `SELECT DISTINCT u.id, u.email, u.first_name, u.last_name, u.role
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.is_broadcast = FALSE AND m.receiver_id = $1
		  AND (u.role = 'admin' OR u.is_superuser = TRUE)
		ORDER BY u.email ASC`
	var contacts []models.ChatContact
	if err := r.db.SelectContext(ctx, &contacts, query, userID); err != nil {
		return nil, fmt.Errorf("list admin correspondents: %w", err)
	}
	return contacts, nil
}

// AssignedVictims returns the victims whose incidents are assigned to the
// investigator.
func (r *MessageRepository) AssignedVictims(ctx context.Context, investigatorID int64) ([]models.ChatContact, error) {
	const query = `SELECT DISTINCT u.id, u.email, u.first_name, u.last_name, u.role
		FROM incident_assignments a
		JOIN incidents i ON i.id = a.incident_id
		JOIN users u ON u.id = i.user_id
		WHERE a.assigned_to = $1
		ORDER BY u.email ASC`
	var contacts []models.ChatContact
	if err := r.db.SelectContext(ctx, &contacts, query, investigatorID); err != nil {
		return nil, fmt.Errorf("list assigned victims: %w", err)
	}
	return contacts, nil
}

// AssignedInvestigators returns the investigators assigned to any of the
// victim's incidents.
func (r *MessageRepository) AssignedInvestigators(ctx context.Context, victimID int64) ([]models.ChatContact, error) {
	const query = `SELECT DISTINCT u.id, u.email, u.first_name, u.last_name, u.role
		FROM incident_assignments a
		JOIN incidents i ON i.id = a.incident_id
		JOIN users u ON u.id = a.assigned_to
		WHERE i.user_id = $1
		ORDER BY u.email ASC`
	var contacts []models.ChatContact
	if err := r.db.SelectContext(ctx, &contacts, query, victimID); err != nil {
		return nil, fmt.Errorf("list assigned investigators: %w", err)
	}
	return contacts, nil
}

// AllContacts returns every active user except the given one. Used for the
// admin contact list.
func (r *MessageRepository) AllContacts(ctx context.Context, excludeID int64) ([]models.ChatContact, error) {
	const query = `SELECT id, email, first_name, last_name, role FROM users
		WHERE id <> $1 AND active = TRUE ORDER BY email ASC`
	var contacts []models.ChatContact
	if err := r.db.SelectContext(ctx, &contacts, query, excludeID); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}
