package testutil

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/entsync/internal/domain"
)

// RecordOption mutates a test entitlement record.
type RecordOption func(*domain.EntitlementRecord)

// WithLicense sets the access-level license display name.
func WithLicense(displayName string) RecordOption {
	return func(r *domain.EntitlementRecord) {
		r.AccessLevel.LicenseDisplayName = displayName
	}
}

// WithGroupRuleSource marks the record as assigned through a group rule.
func WithGroupRuleSource() RecordOption {
	return func(r *domain.EntitlementRecord) {
		r.AccessLevel.AssignmentSource = domain.AssignmentSourceGroupRule
	}
}

// WithLastAccessed sets the last-accessed timestamp.
func WithLastAccessed(t time.Time) RecordOption {
	return func(r *domain.EntitlementRecord) {
		r.LastAccessedDate = &t
	}
}

// WithNeverAccessed clears the last-accessed timestamp.
func WithNeverAccessed() RecordOption {
	return func(r *domain.EntitlementRecord) {
		r.LastAccessedDate = nil
	}
}

// WithCreated sets the record-creation timestamp.
func WithCreated(t time.Time) RecordOption {
	return func(r *domain.EntitlementRecord) {
		r.DateCreated = t
	}
}

// WithGroupAssignments seeds the cached policy-group memberships.
func WithGroupAssignments(groups ...domain.GroupEntitlement) RecordOption {
	return func(r *domain.EntitlementRecord) {
		r.GroupAssignments = groups
	}
}

// NewTestRecord builds an entitlement record for a display name like
// "Alice Smith". Defaults: Basic license, direct assignment, recently
// accessed, created well outside the grace period.
func NewTestRecord(displayName string, opts ...RecordOption) domain.EntitlementRecord {
	now := time.Now().UTC()
	principal := strings.ToLower(strings.ReplaceAll(displayName, " ", ".")) + "@example.com"
	rec := domain.EntitlementRecord{
		ID: uuid.New().String(),
		User: domain.User{
			PrincipalName: principal,
			DisplayName:   displayName,
		},
		AccessLevel: domain.LicenseRule{
			LicenseDisplayName: string(domain.LicenseBasic),
			AssignmentSource:   "direct",
		},
		LastAccessedDate: timePtr(now.AddDate(0, 0, -1)),
		DateCreated:      now.AddDate(-1, 0, 0),
	}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}

// ActiveVerdict builds a directory verdict for a usable identity with
// recent sign-in activity.
func ActiveVerdict(principalName string) domain.IdentityVerdict {
	now := time.Now().UTC()
	return domain.IdentityVerdict{
		PrincipalName: principalName,
		Found:         true,
		Enabled:       true,
		LastSignIn:    timePtr(now.AddDate(0, 0, -1)),
		CreatedAt:     timePtr(now.AddDate(-1, 0, 0)),
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
