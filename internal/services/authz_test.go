package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yapcx/backoffice/internal/models"
)

func TestHasCapability(t *testing.T) {
	t.Run("nil caller has nothing", func(t *testing.T) {
		assert.False(t, HasCapability(nil, CapManageUsers))
	})

	t.Run("template accounts are always denied", func(t *testing.T) {
		u := &models.User{IsManager: true, IsTemplate: true}
		assert.False(t, HasCapability(u, CapManageUsers))
		assert.False(t, HasCapability(u, CapModifyRates))
	})

	t.Run("managers hold every capability", func(t *testing.T) {
		u := &models.User{IsManager: true}
		for _, c := range []Capability{
			CapManageAMLSettings, CapResolveAlerts, CapManageUsers,
			CapModifyRates, CapEditFees, CapTransferBetween, CapReconcileAccounts,
		} {
			assert.True(t, HasCapability(u, c), string(c))
		}
	})

	t.Run("compliance officers resolve alerts but cannot manage users", func(t *testing.T) {
		u := &models.User{IsComplianceOfficer: true}
		assert.True(t, HasCapability(u, CapResolveAlerts))
		assert.True(t, HasCapability(u, CapManageAMLSettings))
		assert.False(t, HasCapability(u, CapManageUsers))
		assert.False(t, HasCapability(u, CapTransferBetween))
	})

	t.Run("financial flags grant only their own capability", func(t *testing.T) {
		u := &models.User{CanTransferBetweenAccounts: true}
		assert.True(t, HasCapability(u, CapTransferBetween))
		assert.False(t, HasCapability(u, CapModifyRates))
		assert.False(t, HasCapability(u, CapResolveAlerts))
	})
}
