package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/entsync/internal/domain"
	"github.com/alexanderramin/entsync/internal/testutil"
)

var passNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func passDaysAgo(n int) time.Time {
	return passNow.AddDate(0, 0, -n)
}

func newTestReconciler(conn *testutil.FakeConnection, dir *testutil.FakeDirectory, opts Options) *Reconciler {
	if opts.DaysBeforeDeletion == 0 {
		opts.DaysBeforeDeletion = 90
	}
	if opts.DaysBeforeDemotion == 0 {
		opts.DaysBeforeDemotion = 30
	}
	if opts.DaysGraceAfterCreation == 0 {
		opts.DaysGraceAfterCreation = 30
	}
	if opts.GroupPrefix == "" {
		opts.GroupPrefix = "License-"
	}
	r := New(conn, dir, opts, NoopObserver{})
	r.now = func() time.Time { return passNow }
	return r
}

func seedUser(conn *testutil.FakeConnection, dir *testutil.FakeDirectory, rec domain.EntitlementRecord) {
	conn.Users = append(conn.Users, rec)
	dir.Verdicts[rec.User.PrincipalName] = testutil.ActiveVerdict(rec.User.PrincipalName)
}

func TestReconciler_Run_FullPass(t *testing.T) {
	conn := testutil.NewFakeConnection()
	dir := testutil.NewFakeDirectory()

	// Compliant: group-rule assigned, recently active.
	compliant := testutil.NewTestRecord("Compliant User",
		testutil.WithGroupRuleSource(),
		testutil.WithLastAccessed(passDaysAgo(1)))
	seedUser(conn, dir, compliant)

	// Direct assignment: converges to the Basic group.
	direct := testutil.NewTestRecord("Direct User",
		testutil.WithLastAccessed(passDaysAgo(1)))
	seedUser(conn, dir, direct)

	// Stale: demoted to stakeholder.
	stale := testutil.NewTestRecord("Stale User",
		testutil.WithGroupRuleSource(),
		testutil.WithLastAccessed(passDaysAgo(60)),
		testutil.WithCreated(passDaysAgo(400)))
	seedUser(conn, dir, stale)

	// Gone from the directory: deleted from the organization.
	gone := testutil.NewTestRecord("Gone User",
		testutil.WithGroupRuleSource(),
		testutil.WithLastAccessed(passDaysAgo(1)))
	conn.Users = append(conn.Users, gone) // no directory verdict: not found

	sum, err := newTestReconciler(conn, dir, Options{}).Run(context.Background())
	require.NoError(t, err)
	passCalls := append([]string(nil), conn.Calls...)

	assert.Equal(t, 4, sum.UsersFetched)
	assert.Equal(t, 1, sum.NoAction)
	assert.Equal(t, 1, sum.Converged)
	assert.Equal(t, 1, sum.Demoted)
	assert.Equal(t, 1, sum.Deleted)
	assert.Zero(t, sum.Failures)

	// The deleted record is gone from the remote working set.
	for _, u := range conn.Users {
		assert.NotEqual(t, gone.ID, u.ID)
	}

	// The direct user converged: remote state now shows a group rule.
	fresh, err := conn.GetUserEntitlement(context.Background(), direct.ID)
	require.NoError(t, err)
	assert.True(t, fresh.AssignedByGroupRule())

	// The stale user holds the stakeholder license via group rule.
	fresh, err = conn.GetUserEntitlement(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.LicenseStakeholder), fresh.AccessLevel.LicenseDisplayName)
	assert.True(t, fresh.AssignedByGroupRule())

	// Rule re-evaluation fires once, after the loop.
	assert.Equal(t, 1, conn.Reevaluations)
	assert.Equal(t, "TriggerRuleReevaluation", passCalls[len(passCalls)-1])
}

func TestReconciler_Run_ExclusionFilters(t *testing.T) {
	conn := testutil.NewFakeConnection()
	dir := testutil.NewFakeDirectory()

	svc := testutil.NewTestRecord("Build Service Account")
	seedUser(conn, dir, svc)
	admin := testutil.NewTestRecord("Org Admin")
	admin.User.PrincipalName = "breakglass@example.com"
	seedUser(conn, dir, admin)
	normal := testutil.NewTestRecord("Normal User",
		testutil.WithGroupRuleSource())
	seedUser(conn, dir, normal)

	sum, err := newTestReconciler(conn, dir, Options{
		// Case differs from the display names on purpose: matching is
		// case-insensitive.
		ExcludedNameWords:  []string{"SERVICE"},
		ExcludedPrincipals: []string{"BreakGlass"},
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.UsersExcluded)
	assert.Equal(t, 1, sum.NoAction)
}

func TestReconciler_Run_DirectoryLookupFailure_ContinuesPass(t *testing.T) {
	conn := testutil.NewFakeConnection()
	dir := testutil.NewFakeDirectory()

	broken := testutil.NewTestRecord("Broken User",
		testutil.WithGroupRuleSource())
	seedUser(conn, dir, broken)
	dir.LookupErr[broken.User.PrincipalName] = errors.New("directory unavailable")

	healthy := testutil.NewTestRecord("Healthy User",
		testutil.WithGroupRuleSource())
	seedUser(conn, dir, healthy)

	sum, err := newTestReconciler(conn, dir, Options{}).Run(context.Background())
	require.NoError(t, err)

	// One user's failure never blocks the rest of the organization.
	assert.Equal(t, 1, sum.Failures)
	assert.Equal(t, 1, sum.NoAction)
	assert.Equal(t, 1, conn.Reevaluations)

	// The user was skipped, not deleted.
	_, err = conn.GetUserEntitlement(context.Background(), broken.ID)
	assert.NoError(t, err)
}

func TestReconciler_Run_BootstrapFailure_AbortsPass(t *testing.T) {
	conn := testutil.NewFakeConnection()
	conn.FailOn["ListGroupEntitlements"] = errors.New("boom")

	_, err := newTestReconciler(conn, testutil.NewFakeDirectory(), Options{}).Run(context.Background())

	require.Error(t, err)
	assert.Zero(t, conn.Reevaluations)
}

func TestReconciler_Run_DirectoryDeletion(t *testing.T) {
	conn := testutil.NewFakeConnection()
	dir := testutil.NewFakeDirectory()

	idle := testutil.NewTestRecord("Idle User",
		testutil.WithGroupRuleSource(),
		testutil.WithLastAccessed(passDaysAgo(1)))
	conn.Users = append(conn.Users, idle)
	staleSignIn := passDaysAgo(400)
	verdict := testutil.ActiveVerdict(idle.User.PrincipalName)
	verdict.LastSignIn = &staleSignIn
	verdict.CreatedAt = &staleSignIn
	dir.Verdicts[idle.User.PrincipalName] = verdict

	sum, err := newTestReconciler(conn, dir, Options{
		DeleteDirectoryIdentities: true,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Deleted)
	assert.Equal(t, []string{idle.User.PrincipalName}, dir.Deleted)
	assert.Empty(t, conn.Users)
}

func TestReconciler_Run_SecondPassIsNoOp(t *testing.T) {
	conn := testutil.NewFakeConnection()
	dir := testutil.NewFakeDirectory()

	direct := testutil.NewTestRecord("Direct User",
		testutil.WithLastAccessed(passDaysAgo(1)))
	seedUser(conn, dir, direct)

	r := newTestReconciler(conn, dir, Options{})
	first, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Converged)

	created := conn.CallsTo("CreateGroupEntitlement")
	second, err := newTestReconciler(conn, dir, Options{}).Run(context.Background())
	require.NoError(t, err)

	// Convergence: the applied state satisfies the rules, and bootstrap
	// creates nothing new.
	assert.Equal(t, 1, second.NoAction)
	assert.Zero(t, second.Converged)
	assert.Equal(t, created, conn.CallsTo("CreateGroupEntitlement"))
}
