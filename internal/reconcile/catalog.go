package reconcile

import (
	"context"
	"fmt"

	"github.com/alexanderramin/entsync/internal/devops"
	"github.com/alexanderramin/entsync/internal/domain"
)

// Catalog is the set of policy-managed groups, one per license tier. It is
// filled during bootstrap and read-only for the rest of the pass.
type Catalog struct {
	prefix string
	suffix string
	groups []domain.GroupEntitlement
}

// NewCatalog creates an empty catalog with the configured group naming.
func NewCatalog(prefix, suffix string) *Catalog {
	return &Catalog{prefix: prefix, suffix: suffix}
}

// DisplayName returns the display name of the policy group for a tier.
func (c *Catalog) DisplayName(tier domain.License) string {
	return domain.GroupDisplayName(c.prefix, tier, c.suffix)
}

// Lookup finds the group entitlement whose display name matches a tier.
func (c *Catalog) Lookup(tier domain.License) (domain.GroupEntitlement, bool) {
	want := c.DisplayName(tier)
	for _, ge := range c.groups {
		if ge.Group.DisplayName == want {
			return ge, true
		}
	}
	return domain.GroupEntitlement{}, false
}

// Bootstrap fetches the organization's group entitlements and creates the
// missing policy groups, then re-fetches so the catalog holds remote
// identifiers for every tier. Idempotent: with all groups present it
// creates nothing.
func (c *Catalog) Bootstrap(ctx context.Context, conn devops.Connection, obs Observer) error {
	groups, err := conn.ListGroupEntitlements(ctx)
	if err != nil {
		return fmt.Errorf("listing group entitlements: %w", err)
	}
	c.groups = groups

	created := 0
	for _, tier := range domain.Licenses() {
		if _, ok := c.Lookup(tier); ok {
			continue
		}
		name := c.DisplayName(tier)
		if _, err := conn.CreateGroupEntitlement(ctx, domain.NewGroupEntitlement(name, tier)); err != nil {
			return fmt.Errorf("creating group entitlement %q: %w", name, err)
		}
		obs.GroupCreated(name, tier)
		created++
	}

	if created > 0 {
		groups, err = conn.ListGroupEntitlements(ctx)
		if err != nil {
			return fmt.Errorf("refreshing group entitlements: %w", err)
		}
		c.groups = groups
	}
	return nil
}
