package devops

import (
	"context"

	"github.com/alexanderramin/entsync/internal/domain"
)

// Connection is the capability interface for the work-tracking directory.
// The reconciler consumes only this interface; the HTTP implementation and
// the test fakes both satisfy it.
type Connection interface {
	// ListGroupEntitlements fetches every group entitlement in the
	// organization.
	ListGroupEntitlements(ctx context.Context) ([]domain.GroupEntitlement, error)

	// CreateGroupEntitlement creates a policy group with its license rule
	// and returns the created entitlement (with its remote identifier).
	CreateGroupEntitlement(ctx context.Context, ge domain.GroupEntitlement) (domain.GroupEntitlement, error)

	// ListUserEntitlements fetches every user entitlement, including group
	// rule assignments.
	ListUserEntitlements(ctx context.Context) ([]domain.EntitlementRecord, error)

	// GetUserEntitlement re-fetches one user entitlement. Used to refresh
	// the group-membership cache after a mutation.
	GetUserEntitlement(ctx context.Context, userID string) (domain.EntitlementRecord, error)

	// AddGroupMember adds a user to a group entitlement.
	AddGroupMember(ctx context.Context, groupID, userID string) error

	// RemoveGroupMember removes a user from a group entitlement.
	RemoveGroupMember(ctx context.Context, groupID, userID string) error

	// RemoveDirectAssignment removes the user's explicit license
	// assignment. A no-op when the user has none.
	RemoveDirectAssignment(ctx context.Context, userID string) error

	// DeleteUserEntitlement removes the user from the organization.
	DeleteUserEntitlement(ctx context.Context, userID string) error

	// TriggerRuleReevaluation asks the remote system to recompute
	// group-derived access for the whole organization. Called once per
	// pass, after all users are processed.
	TriggerRuleReevaluation(ctx context.Context) error
}
