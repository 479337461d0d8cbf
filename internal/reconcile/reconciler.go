package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/entsync/internal/devops"
	"github.com/alexanderramin/entsync/internal/domain"
	"github.com/alexanderramin/entsync/internal/graph"
	"github.com/alexanderramin/entsync/internal/policy"
)

// Options configures a reconciliation pass.
type Options struct {
	DaysBeforeDeletion     int
	DaysBeforeDemotion     int
	DaysGraceAfterCreation int

	GroupPrefix string
	GroupSuffix string

	// ExcludedNameWords drops users whose display name contains any entry;
	// ExcludedPrincipals does the same for principal names. Both are
	// case-insensitive substring checks.
	ExcludedNameWords  []string
	ExcludedPrincipals []string

	// DeleteDirectoryIdentities activates the directory-deletion rule.
	DeleteDirectoryIdentities bool
}

// Reconciler drives one full pass over the organization: bootstrap the
// policy groups, evaluate and apply a decision per user, then trigger the
// remote rule re-evaluation.
//
// Users are processed one at a time. Their decisions are independent, but
// the group bootstrap must complete before the loop and the re-evaluation
// trigger must follow it, so the pass stays a single ordered sequence.
type Reconciler struct {
	conn    devops.Connection
	dir     graph.Directory
	opts    Options
	catalog *Catalog
	applier *Applier
	obs     Observer

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Reconciler over the two remote handles.
func New(conn devops.Connection, dir graph.Directory, opts Options, obs Observer) *Reconciler {
	if obs == nil {
		obs = NoopObserver{}
	}
	catalog := NewCatalog(opts.GroupPrefix, opts.GroupSuffix)
	return &Reconciler{
		conn:    conn,
		dir:     dir,
		opts:    opts,
		catalog: catalog,
		applier: NewApplier(conn, dir, catalog, obs),
		obs:     obs,
		now:     time.Now,
	}
}

// Run executes one reconciliation pass and returns its summary. A single
// user's failure never aborts the pass; group bootstrap or user listing
// failures do, since nothing sensible can happen without them.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	cutoffs := policy.ComputeCutoffs(
		r.now().UTC(),
		r.opts.DaysBeforeDeletion,
		r.opts.DaysBeforeDemotion,
		r.opts.DaysGraceAfterCreation,
	)
	r.obs.PassStarted(cutoffs)

	var sum Summary

	if err := r.catalog.Bootstrap(ctx, r.conn, r.obs); err != nil {
		return sum, err
	}

	records, err := r.conn.ListUserEntitlements(ctx)
	if err != nil {
		return sum, fmt.Errorf("listing user entitlements: %w", err)
	}
	sum.UsersFetched = len(records)

	for i := range records {
		rec := &records[i]
		if r.excluded(rec) {
			sum.UsersExcluded++
			continue
		}
		r.processUser(ctx, rec, cutoffs, &sum)
	}

	if err := r.conn.TriggerRuleReevaluation(ctx); err != nil {
		return sum, fmt.Errorf("triggering rule re-evaluation: %w", err)
	}

	r.obs.PassCompleted(sum)
	return sum, nil
}

func (r *Reconciler) processUser(ctx context.Context, rec *domain.EntitlementRecord, cutoffs policy.Cutoffs, sum *Summary) {
	verdict, err := r.dir.GetIdentity(ctx, rec.User.PrincipalName)
	if err != nil {
		r.obs.UserSkipped(rec, err)
		sum.Failures++
		return
	}

	opts := policy.Options{DeleteDirectoryIdentities: r.opts.DeleteDirectoryIdentities}
	actions := policy.Evaluate(rec, cutoffs, verdict, opts)
	r.obs.UserEvaluated(rec, actions)

	if len(actions) == 0 {
		sum.NoAction++
		return
	}

	res := r.applier.Apply(ctx, rec, actions)
	sum.Failures += res.Failures

	switch {
	case res.Deleted:
		sum.Deleted++
	case demotes(actions):
		sum.Demoted++
	default:
		sum.Converged++
	}
}

// excluded applies the configured name and principal filters.
func (r *Reconciler) excluded(rec *domain.EntitlementRecord) bool {
	return containsAny(rec.User.DisplayName, r.opts.ExcludedNameWords) ||
		containsAny(rec.User.PrincipalName, r.opts.ExcludedPrincipals)
}

// containsAny reports whether s contains any dictionary entry,
// case-insensitively.
func containsAny(s string, dictionary []string) bool {
	lower := strings.ToLower(s)
	for _, word := range dictionary {
		if strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// demotes reports whether the decision includes a stakeholder demotion;
// only the demotion rule emits a policy-group sweep.
func demotes(actions []policy.Action) bool {
	for _, a := range actions {
		if a.Kind == policy.ActionRemoveAllPolicyGroups {
			return true
		}
	}
	return false
}
