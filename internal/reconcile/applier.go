package reconcile

import (
	"context"
	"fmt"

	"github.com/alexanderramin/entsync/internal/devops"
	"github.com/alexanderramin/entsync/internal/domain"
	"github.com/alexanderramin/entsync/internal/graph"
	"github.com/alexanderramin/entsync/internal/policy"
)

// Applier executes decisions against the two remote systems. A failed step
// ends the user's decision without rollback: the rules are convergent, so
// the next pass re-derives whatever is still missing.
type Applier struct {
	conn    devops.Connection
	dir     graph.Directory
	catalog *Catalog
	obs     Observer
}

// NewApplier creates an Applier working against the given remote handles
// and group catalog.
func NewApplier(conn devops.Connection, dir graph.Directory, catalog *Catalog, obs Observer) *Applier {
	if obs == nil {
		obs = NoopObserver{}
	}
	return &Applier{conn: conn, dir: dir, catalog: catalog, obs: obs}
}

// ApplyResult reports what happened to one record.
type ApplyResult struct {
	// Deleted means the record was removed from the organization and must
	// leave the working set.
	Deleted bool
	// Failures counts steps that could not be applied.
	Failures int
}

// Apply executes the ordered actions for one record, mutating the record's
// cached state as the remote state changes. Any failed step stops further
// actions for that record: the later steps assume the earlier ones took
// effect, and the not-applied remainder is re-derived next pass. A user
// deletion also stops, since the record no longer exists.
func (a *Applier) Apply(ctx context.Context, rec *domain.EntitlementRecord, actions []policy.Action) ApplyResult {
	var res ApplyResult
	for _, action := range actions {
		if err := a.apply(ctx, rec, action); err != nil {
			a.obs.ActionFailed(rec, action, err)
			res.Failures++
			return res
		}
		if action.Kind == policy.ActionDeleteUser {
			res.Deleted = true
			return res
		}
	}
	return res
}

func (a *Applier) apply(ctx context.Context, rec *domain.EntitlementRecord, action policy.Action) error {
	switch action.Kind {
	case policy.ActionDeleteIdentity:
		return a.dir.DeleteIdentity(ctx, rec.User.PrincipalName)
	case policy.ActionDeleteUser:
		return a.conn.DeleteUserEntitlement(ctx, rec.ID)
	case policy.ActionAssignToGroup:
		return a.assignToGroup(ctx, rec, action.Tier)
	case policy.ActionRemoveDirectAssignment:
		return a.conn.RemoveDirectAssignment(ctx, rec.ID)
	case policy.ActionRemoveAllPolicyGroups:
		return a.removeAllPolicyGroups(ctx, rec)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

func (a *Applier) assignToGroup(ctx context.Context, rec *domain.EntitlementRecord, tier domain.License) error {
	group, ok := a.catalog.Lookup(tier)
	if !ok {
		// Bootstrap guarantees one group per tier; a miss here is a logic
		// error, not a transient fault.
		return fmt.Errorf("no group entitlement for tier %q (wanted %q)", tier, a.catalog.DisplayName(tier))
	}
	if err := a.conn.AddGroupMember(ctx, group.ID, rec.ID); err != nil {
		return err
	}
	return a.refresh(ctx, rec)
}

func (a *Applier) removeAllPolicyGroups(ctx context.Context, rec *domain.EntitlementRecord) error {
	for _, tier := range domain.Licenses() {
		want := a.catalog.DisplayName(tier)
		for _, member := range rec.GroupAssignments {
			if member.Group.DisplayName != want {
				continue
			}
			if err := a.conn.RemoveGroupMember(ctx, member.ID, rec.ID); err != nil {
				return err
			}
		}
	}
	return a.refresh(ctx, rec)
}

// refresh re-fetches the record so its cached access level and group
// memberships reflect the mutation just made. Membership changes are not
// guaranteed to be visible in previously fetched records.
func (a *Applier) refresh(ctx context.Context, rec *domain.EntitlementRecord) error {
	fresh, err := a.conn.GetUserEntitlement(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("refreshing entitlement for %s: %w", rec.User.PrincipalName, err)
	}
	rec.AccessLevel = fresh.AccessLevel
	rec.GroupAssignments = fresh.GroupAssignments
	return nil
}
