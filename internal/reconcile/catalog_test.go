package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/entsync/internal/domain"
	"github.com/alexanderramin/entsync/internal/testutil"
)

func TestCatalog_Bootstrap_CreatesAllTiers(t *testing.T) {
	conn := testutil.NewFakeConnection()
	catalog := NewCatalog("License-", "")

	require.NoError(t, catalog.Bootstrap(context.Background(), conn, NoopObserver{}))

	assert.Len(t, conn.Groups, len(domain.Licenses()))
	for _, tier := range domain.Licenses() {
		group, ok := catalog.Lookup(tier)
		require.True(t, ok, tier)
		assert.NotEmpty(t, group.ID)
		assert.Equal(t, string(tier), group.LicenseRule.LicenseDisplayName)
	}
}

func TestCatalog_Bootstrap_Idempotent(t *testing.T) {
	conn := testutil.NewFakeConnection()
	catalog := NewCatalog("License-", "")

	require.NoError(t, catalog.Bootstrap(context.Background(), conn, NoopObserver{}))
	created := conn.CallsTo("CreateGroupEntitlement")
	require.NoError(t, catalog.Bootstrap(context.Background(), conn, NoopObserver{}))

	assert.Equal(t, created, conn.CallsTo("CreateGroupEntitlement"))
	assert.Len(t, conn.Groups, len(domain.Licenses()))
}

func TestCatalog_Bootstrap_CreatesOnlyMissing(t *testing.T) {
	conn := testutil.NewFakeConnection()
	seed := NewCatalog("License-", "")
	_, err := conn.CreateGroupEntitlement(context.Background(),
		domain.NewGroupEntitlement(seed.DisplayName(domain.LicenseBasic), domain.LicenseBasic))
	require.NoError(t, err)
	conn.Calls = nil

	catalog := NewCatalog("License-", "")
	require.NoError(t, catalog.Bootstrap(context.Background(), conn, NoopObserver{}))

	assert.Equal(t, len(domain.Licenses())-1, conn.CallsTo("CreateGroupEntitlement"))
}

func TestCatalog_DisplayName_SanitizesPlus(t *testing.T) {
	catalog := NewCatalog("ADO-", "-Lic")
	assert.Equal(t, "ADO-Basic - Test Plans-Lic", catalog.DisplayName(domain.LicenseBasicTestPlans))
}

func TestCatalog_Lookup_Miss(t *testing.T) {
	catalog := NewCatalog("License-", "")
	_, ok := catalog.Lookup(domain.LicenseBasic)
	assert.False(t, ok)
}
