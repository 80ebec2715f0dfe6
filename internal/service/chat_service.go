package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type chatMessageRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Message, error)
	Create(ctx context.Context, msg *models.Message) error
	UpdateFlags(ctx context.Context, id int64, read, delivered bool) error
	Conversation(ctx context.Context, userA, userB int64) ([]models.Message, error)
	Inbox(ctx context.Context, userID int64) ([]models.Message, error)
	Broadcasts(ctx context.Context, types []models.BroadcastType, newestFirst bool) ([]models.Message, error)
	AdminHasMessaged(ctx context.Context, adminID, userID int64) (bool, error)
	AdminsWhoMessaged(ctx context.Context, userID int64) ([]models.ChatContact, error)
	AssignedVictims(ctx context.Context, investigatorID int64) ([]models.ChatContact, error)
	AssignedInvestigators(ctx context.Context, victimID int64) ([]models.ChatContact, error)
	AllContacts(ctx context.Context, excludeID int64) ([]models.ChatContact, error)
}

type chatUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type chatAssignmentRepository interface {
	LinkExists(ctx context.Context, investigatorID, victimID int64) (bool, error)
}

// ChatService enforces who may message whom and which stored messages a
// reader may retrieve.
type ChatService struct {
	messages    chatMessageRepository
	users       chatUserRepository
	assignments chatAssignmentRepository
	activity    activityRecorder
	validator   *validator.Validate
	logger      *zap.Logger

	systemUserID int64
}

// NewChatService constructs a ChatService instance. systemUserID is the
// admin-panel identity created at startup.
func NewChatService(messages chatMessageRepository, users chatUserRepository, assignments chatAssignmentRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, systemUserID int64) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChatService{
		messages:     messages,
		users:        users,
		assignments:  assignments,
		activity:     activity,
		validator:    validate,
		logger:       logger,
		systemUserID: systemUserID,
	}
}

// Send creates a direct message or a broadcast after checking the caller's
// relationship to the receiver.
func (s *ChatService) Send(ctx context.Context, caller *models.JWTClaims, req models.SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	if req.IsBroadcast {
		return s.sendBroadcast(ctx, caller, req)
	}
	if req.Receiver == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "receiver is required for direct messages")
	}

	receiver, err := s.users.FindByID(ctx, *req.Receiver)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receiver not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receiver")
	}
	if receiver.ID == s.systemUserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot message the broadcast identity")
	}

	if err := s.checkSendPermission(ctx, caller, receiver); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   caller.UserID,
		ReceiverID: &receiver.ID,
		Content:    req.Content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create message")
	}

	s.record(ctx, caller.UserID, &msg.ID)
	return s.reload(ctx, msg)
}

// Conversation returns the thread between the caller and another party. The
// admin-panel identity yields role-filtered broadcasts instead.
func (s *ChatService) Conversation(ctx context.Context, caller *models.JWTClaims, otherID int64) ([]models.Message, error) {
	if otherID == s.systemUserID {
		// The system thread reads like any other conversation, oldest
		// first. The broadcast feed endpoint keeps newest-first.
		return s.visibleBroadcasts(ctx, caller, false)
	}

	other, err := s.users.FindByID(ctx, otherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.checkSendPermission(ctx, caller, other); err != nil {
		return nil, err
	}

	msgs, err := s.messages.Conversation(ctx, caller.UserID, otherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	return msgs, nil
}

// Inbox returns the caller's direct messages plus visible broadcasts in
// chronological order.
func (s *ChatService) Inbox(ctx context.Context, caller *models.JWTClaims) ([]models.Message, error) {
	direct, err := s.messages.Inbox(ctx, caller.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inbox")
	}
	broadcasts, err := s.messages.Broadcasts(ctx, models.VisibleBroadcastTypes(caller.Role), false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load broadcasts")
	}

	merged := append(direct, broadcasts...)
	sortMessagesByTime(merged)
	return merged, nil
}

// VisibleBroadcasts returns broadcasts filtered by the caller's role,
// newest first.
func (s *ChatService) VisibleBroadcasts(ctx context.Context, caller *models.JWTClaims) ([]models.Message, error) {
	return s.visibleBroadcasts(ctx, caller, true)
}

func (s *ChatService) visibleBroadcasts(ctx context.Context, caller *models.JWTClaims, newestFirst bool) ([]models.Message, error) {
	msgs, err := s.messages.Broadcasts(ctx, models.VisibleBroadcastTypes(caller.Role), newestFirst)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load broadcasts")
	}
	return msgs, nil
}

// AvailableUsers enumerates the counterparties the caller may address,
// always prepending the admin-panel broadcast pseudo-contact.
func (s *ChatService) AvailableUsers(ctx context.Context, caller *models.JWTClaims) ([]models.ChatContact, error) {
	var (
		contacts []models.ChatContact
		err      error
	)
	switch caller.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		contacts, err = s.messages.AllContacts(ctx, caller.UserID)
	case models.RoleInvestigator:
		var admins, victims []models.ChatContact
		admins, err = s.messages.AdminsWhoMessaged(ctx, caller.UserID)
		if err == nil {
			victims, err = s.messages.AssignedVictims(ctx, caller.UserID)
			contacts = dedupeContacts(admins, victims)
		}
	case models.RoleVictim:
		contacts, err = s.messages.AssignedInvestigators(ctx, caller.UserID)
	default:
		contacts = []models.ChatContact{}
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
	}

	for i := range contacts {
		contacts[i].Status = "online"
		contacts[i].Avatar = contactAvatar(contacts[i].FirstName, contacts[i].LastName)
	}

	system := models.ChatContact{
		ID:           s.systemUserID,
		Email:        models.AdminPanelEmail,
		FirstName:    "Admin",
		LastName:     "Panel",
		Role:         models.RoleAdmin,
		Status:       "online",
		Avatar:       "AP",
		IsSystemUser: true,
	}
	result := make([]models.ChatContact, 0, len(contacts)+1)
	result = append(result, system)
	for _, c := range contacts {
		if c.ID == s.systemUserID {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// UpdateFlags sets the read/delivered flags. Only the receiver may update.
func (s *ChatService) UpdateFlags(ctx context.Context, caller *models.JWTClaims, messageID int64, req models.MessageFlagsRequest) (*models.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}
	if msg.ReceiverID == nil || *msg.ReceiverID != caller.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the receiver may update message flags")
	}

	read := msg.Read
	delivered := msg.Delivered
	if req.Read != nil {
		read = *req.Read
	}
	if req.Delivered != nil {
		delivered = *req.Delivered
	}
	if err := s.messages.UpdateFlags(ctx, messageID, read, delivered); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update message")
	}

	msg.Read = read
	msg.Delivered = delivered
	return msg, nil
}

// GetMessage returns a single message visible to its sender or receiver.
func (s *ChatService) GetMessage(ctx context.Context, caller *models.JWTClaims, messageID int64) (*models.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}
	if msg.SenderID != caller.UserID && (msg.ReceiverID == nil || *msg.ReceiverID != caller.UserID) {
		if !msg.IsBroadcast {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "")
		}
	}
	return msg, nil
}

func (s *ChatService) sendBroadcast(ctx context.Context, caller *models.JWTClaims, req models.SendMessageRequest) (*models.Message, error) {
	if !CapabilitiesFor(caller.Role).CanBroadcast() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may broadcast")
	}
	broadcastType := req.BroadcastType
	if broadcastType == "" {
		broadcastType = models.BroadcastAll
	}
	if !models.ValidBroadcastType(broadcastType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown broadcast type")
	}

	msg := &models.Message{
		SenderID:      caller.UserID,
		Content:       req.Content,
		IsBroadcast:   true,
		BroadcastType: &broadcastType,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create broadcast")
	}

	s.record(ctx, caller.UserID, &msg.ID)
	return s.reload(ctx, msg)
}

// checkSendPermission applies the role relationship table: admins reach
// anyone, investigators reach admins who contacted them first or their
// assigned victims, victims reach only their assigned investigators.
func (s *ChatService) checkSendPermission(ctx context.Context, caller *models.JWTClaims, other *models.User) error {
	switch caller.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return nil

	case models.RoleInvestigator:
		switch other.EffectiveRole() {
		case models.RoleAdmin, models.RoleSuperAdmin:
			contacted, err := s.messages.AdminHasMessaged(ctx, other.ID, caller.UserID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check contact history")
			}
			if !contacted {
				return appErrors.New(appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status,
					"Investigator can only message admins who have contacted them first.")
			}
			return nil
		case models.RoleVictim:
			linked, err := s.assignments.LinkExists(ctx, caller.UserID, other.ID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment link")
			}
			if !linked {
				return appErrors.Clone(appErrors.ErrForbidden, "Investigator can only message victims of assigned cases.")
			}
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "")

	case models.RoleVictim:
		if other.EffectiveRole() == models.RoleInvestigator {
			linked, err := s.assignments.LinkExists(ctx, other.ID, caller.UserID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment link")
			}
			if linked {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrForbidden, "Victims can only message investigators assigned to their cases.")
	}
	return appErrors.Clone(appErrors.ErrForbidden, "")
}

func (s *ChatService) reload(ctx context.Context, msg *models.Message) (*models.Message, error) {
	full, err := s.messages.FindByID(ctx, msg.ID)
	if err != nil {
		// The row exists; fall back to the sparse struct.
		s.logger.Warn("failed to reload message", zap.Int64("message_id", msg.ID), zap.Error(err))
		return msg, nil
	}
	return full, nil
}

func (s *ChatService) record(ctx context.Context, userID int64, targetID *int64) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Create(ctx, &models.ActivityLog{
		UserID:      userID,
		Action:      models.ActionMessageSend,
		TargetTable: models.TargetMessages,
		TargetID:    targetID,
	}); err != nil {
		s.logger.Warn("failed to record activity", zap.Error(err))
	}
}

func dedupeContacts(groups ...[]models.ChatContact) []models.ChatContact {
	seen := make(map[int64]struct{})
	var result []models.ChatContact
	for _, group := range groups {
		for _, c := range group {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			result = append(result, c)
		}
	}
	return result
}

// contactAvatar derives the two-letter initials shown beside a contact.
func contactAvatar(first, last string) string {
	if first == "" || last == "" {
		return "U"
	}
	return strings.ToUpper(string([]rune(first)[0]) + string([]rune(last)[0]))
}

func sortMessagesByTime(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
