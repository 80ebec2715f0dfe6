package service

import "github.com/cimas-project/cimas-api/internal/models"

// RoleCapabilities answers the permission questions the handlers and
// services ask, one implementation per role. Resolution goes through
// CapabilitiesFor so superusers are coerced to admin in one place.
type RoleCapabilities interface {
	// CanViewIncident reports whether the caller may read an incident
	// they did not report.
	CanViewIncident(callerID int64, incident *models.Incident) bool
	// CanManageIncident reports whether the caller may update or delete
	// the incident.
	CanManageIncident(callerID int64, incident *models.Incident) bool
	// CanAssignCases reports whether the caller may run the assignment
	// workflow.
	CanAssignCases() bool
	// CanManageUsers reports whether the caller may administer accounts.
	CanManageUsers() bool
	// CanBroadcast reports whether the caller may send broadcasts.
	CanBroadcast() bool
	// CanDeleteEvidence reports whether the caller may delete evidence
	// rows.
	CanDeleteEvidence() bool
}

// CapabilitiesFor resolves the capability set for an effective role.
// Unknown roles get victim capabilities, the most restrictive set.
func CapabilitiesFor(role models.UserRole) RoleCapabilities {
	switch role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return adminCapabilities{}
	case models.RoleInvestigator:
		return investigatorCapabilities{}
	}
	return victimCapabilities{}
}

type adminCapabilities struct{}

func (adminCapabilities) CanViewIncident(int64, *models.Incident) bool   { return true }
func (adminCapabilities) CanManageIncident(int64, *models.Incident) bool { return true }
func (adminCapabilities) CanAssignCases() bool                           { return true }
func (adminCapabilities) CanManageUsers() bool                           { return true }
func (adminCapabilities) CanBroadcast() bool                             { return true }
func (adminCapabilities) CanDeleteEvidence() bool                        { return true }

type investigatorCapabilities struct{}

func (investigatorCapabilities) CanViewIncident(int64, *models.Incident) bool { return true }

func (investigatorCapabilities) CanManageIncident(callerID int64, incident *models.Incident) bool {
	return incident != nil && incident.UserID == callerID
}

func (investigatorCapabilities) CanAssignCases() bool    { return false }
func (investigatorCapabilities) CanManageUsers() bool    { return false }
func (investigatorCapabilities) CanBroadcast() bool      { return false }
func (investigatorCapabilities) CanDeleteEvidence() bool { return false }

type victimCapabilities struct{}

func (victimCapabilities) CanViewIncident(callerID int64, incident *models.Incident) bool {
	return incident != nil && incident.UserID == callerID
}

func (victimCapabilities) CanManageIncident(callerID int64, incident *models.Incident) bool {
	return incident != nil && incident.UserID == callerID
}

func (victimCapabilities) CanAssignCases() bool    { return false }
func (victimCapabilities) CanManageUsers() bool    { return false }
func (victimCapabilities) CanBroadcast() bool      { return false }
func (victimCapabilities) CanDeleteEvidence() bool { return false }
