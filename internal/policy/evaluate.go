package policy

import (
	"time"

	"github.com/alexanderramin/entsync/internal/domain"
)

// ActionKind identifies one remote mutation the applier can perform.
type ActionKind string

const (
	// ActionDeleteIdentity removes the identity from the external
	// directory. Always followed by ActionDeleteUser.
	ActionDeleteIdentity ActionKind = "delete_identity"
	// ActionDeleteUser removes the entitlement record from the
	// organization. Terminal: no further actions run for the user.
	ActionDeleteUser ActionKind = "delete_user"
	// ActionAssignToGroup adds the user to the policy group for Tier.
	ActionAssignToGroup ActionKind = "assign_to_group"
	// ActionRemoveDirectAssignment removes the user's explicit license
	// assignment.
	ActionRemoveDirectAssignment ActionKind = "remove_direct_assignment"
	// ActionRemoveAllPolicyGroups removes the user from every
	// policy-managed group. Precedes a stakeholder demotion.
	ActionRemoveAllPolicyGroups ActionKind = "remove_all_policy_groups"
)

// Action is one step of a per-user decision, with the reason it was emitted.
type Action struct {
	Kind   ActionKind
	Tier   domain.License // set for ActionAssignToGroup
	Reason string
}

// Options enables optional policy extensions.
type Options struct {
	// DeleteDirectoryIdentities activates the directory-deletion rule:
	// identities stale in the directory itself are deleted there as well.
	DeleteDirectoryIdentities bool
}

// Evaluate derives the ordered actions to take for one entitlement record.
// It is pure: no remote calls, no clock reads.
//
// Precedence: directory-driven deletion beats activity-driven deletion,
// which beats demotion. Deletion short-circuits; group normalization and
// stakeholder demotion can both fire in the same pass, with demotion judged
// on the tier the record held before normalization.
func Evaluate(rec *domain.EntitlementRecord, cutoffs Cutoffs, verdict domain.IdentityVerdict, opts Options) []Action {
	if !verdict.Active() {
		return []Action{{Kind: ActionDeleteUser, Reason: directoryAbsenceReason(verdict)}}
	}

	if opts.DeleteDirectoryIdentities &&
		before(verdict.LastSignIn, cutoffs.DeleteBefore) &&
		before(verdict.CreatedAt, cutoffs.CreatedAfter) {
		return []Action{
			{Kind: ActionDeleteIdentity, Reason: "no directory sign-in within deletion window"},
			{Kind: ActionDeleteUser, Reason: "no directory sign-in within deletion window"},
		}
	}

	if before(rec.LastAccessedDate, cutoffs.DeleteBefore) &&
		createdOutsideGrace(rec, cutoffs) {
		return []Action{{Kind: ActionDeleteUser, Reason: "no access within deletion window"}}
	}

	var actions []Action
	tier, managed := rec.Tier()

	if !rec.AssignedByGroupRule() && managed {
		actions = append(actions, Action{
			Kind:   ActionAssignToGroup,
			Tier:   tier,
			Reason: "license not assigned through group rule",
		})
		// Visual Studio subscriptions keep their direct assignment: it is
		// managed outside this organization.
		if tier != domain.LicenseVisualStudioSubscriber {
			actions = append(actions, Action{
				Kind:   ActionRemoveDirectAssignment,
				Reason: "license not assigned through group rule",
			})
		}
	}

	// Demotion is judged on the tier the user held entering this pass.
	if before(rec.LastAccessedDate, cutoffs.DemoteBefore) &&
		createdOutsideGrace(rec, cutoffs) &&
		tier != domain.LicenseStakeholder &&
		!domain.IsVisualStudio(rec.AccessLevel.LicenseDisplayName) {
		actions = append(actions,
			Action{Kind: ActionRemoveAllPolicyGroups, Reason: "no access within demotion window"},
			Action{Kind: ActionAssignToGroup, Tier: domain.LicenseStakeholder, Reason: "no access within demotion window"},
			Action{Kind: ActionRemoveDirectAssignment, Reason: "no access within demotion window"},
		)
	}

	return actions
}

// before treats a missing timestamp as not predating the cutoff: a user who
// has never signed in is protected by the creation grace period instead.
func before(t *time.Time, cutoff time.Time) bool {
	return t != nil && t.Before(cutoff)
}

// createdOutsideGrace reports whether the record predates the grace window.
// A zero creation date means the field was absent from the payload; treat
// the record as still inside the grace period rather than as ancient.
func createdOutsideGrace(rec *domain.EntitlementRecord, cutoffs Cutoffs) bool {
	return !rec.DateCreated.IsZero() && rec.DateCreated.Before(cutoffs.CreatedAfter)
}

func directoryAbsenceReason(v domain.IdentityVerdict) string {
	switch {
	case !v.Found:
		return "identity not found in directory"
	case v.DeletedAt != nil:
		return "identity marked deleted in directory"
	default:
		return "identity disabled in directory"
	}
}
