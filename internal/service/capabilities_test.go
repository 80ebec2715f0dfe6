package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cimas-project/cimas-api/internal/models"
)

func TestCapabilitiesSuperAdminMatchesAdmin(t *testing.T) {
	assert.IsType(t, CapabilitiesFor(models.RoleAdmin), CapabilitiesFor(models.RoleSuperAdmin))
	assert.True(t, CapabilitiesFor(models.RoleSuperAdmin).CanManageUsers())
}

func TestCapabilitiesUnknownRoleFallsBackToVictim(t *testing.T) {
	caps := CapabilitiesFor(models.UserRole("auditor"))
	assert.IsType(t, CapabilitiesFor(models.RoleVictim), caps)
	assert.False(t, caps.CanAssignCases())
}

func TestCapabilitiesIncidentVisibility(t *testing.T) {
	incident := &models.Incident{ID: 5, UserID: 20}

	assert.True(t, CapabilitiesFor(models.RoleAdmin).CanViewIncident(1, incident))
	assert.True(t, CapabilitiesFor(models.RoleInvestigator).CanViewIncident(10, incident))
	assert.True(t, CapabilitiesFor(models.RoleVictim).CanViewIncident(20, incident))
	assert.False(t, CapabilitiesFor(models.RoleVictim).CanViewIncident(21, incident))
}

func TestCapabilitiesIncidentManagement(t *testing.T) {
	incident := &models.Incident{ID: 5, UserID: 20}

	assert.True(t, CapabilitiesFor(models.RoleAdmin).CanManageIncident(1, incident))
	assert.False(t, CapabilitiesFor(models.RoleInvestigator).CanManageIncident(10, incident))
	assert.True(t, CapabilitiesFor(models.RoleVictim).CanManageIncident(20, incident))
	assert.False(t, CapabilitiesFor(models.RoleVictim).CanManageIncident(21, incident))
}

func TestCapabilitiesAdminOnlyActions(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleInvestigator, models.RoleVictim} {
		caps := CapabilitiesFor(role)
		assert.False(t, caps.CanAssignCases(), string(role))
		assert.False(t, caps.CanManageUsers(), string(role))
		assert.False(t, caps.CanBroadcast(), string(role))
		assert.False(t, caps.CanDeleteEvidence(), string(role))
	}

	admin := CapabilitiesFor(models.RoleAdmin)
	assert.True(t, admin.CanAssignCases())
	assert.True(t, admin.CanBroadcast())
	assert.True(t, admin.CanDeleteEvidence())
}
