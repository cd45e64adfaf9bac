package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecisionIsApprovalShaped(t *testing.T) {
	assert.True(t, DecisionRequireApproval.IsApprovalShaped())
	assert.True(t, DecisionRequire2FA.IsApprovalShaped())
	assert.True(t, DecisionRequireManagerApproval.IsApprovalShaped())
	assert.True(t, DecisionQueueForReview.IsApprovalShaped())
	assert.False(t, DecisionAllow.IsApprovalShaped())
	assert.False(t, DecisionDeny.IsApprovalShaped())
}

func TestCustomPermission_Expired(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, CustomPermission{}.Expired(now), "no expiry never lapses")
	assert.False(t, CustomPermission{ExpiresAt: &future}.Expired(now))
	assert.True(t, CustomPermission{ExpiresAt: &past}.Expired(now))
}

func TestCustomPermission_Matches(t *testing.T) {
	action := Action{Type: "crm.contact.delete", Category: CategoryDelete}

	assert.True(t, CustomPermission{Target: "delete"}.Matches(action))
	assert.True(t, CustomPermission{Target: "crm.contact.delete"}.Matches(action))
	assert.False(t, CustomPermission{Target: "crm.contact.update"}.Matches(action))
	assert.False(t, CustomPermission{Target: "read"}.Matches(action))
}

func TestPermissionResultPredicates(t *testing.T) {
	assert.True(t, PermissionResult{Decision: DecisionAllow}.Allowed())
	assert.False(t, PermissionResult{Decision: DecisionAllow}.Denied())
	assert.True(t, PermissionResult{Decision: DecisionDeny}.Denied())
	assert.False(t, PermissionResult{Decision: DecisionRequireApproval}.Allowed())
}
