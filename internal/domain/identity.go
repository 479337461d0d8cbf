package domain

import "time"

// IdentityVerdict is the identity directory's report on whether an account
// is usable, plus the activity timestamps the lifecycle rules need.
type IdentityVerdict struct {
	PrincipalName string
	Found         bool
	Enabled       bool
	DeletedAt     *time.Time
	LastSignIn    *time.Time
	CreatedAt     *time.Time
}

// Active reports whether the identity exists, is enabled and is not marked
// deleted in the directory.
func (v IdentityVerdict) Active() bool {
	return v.Found && v.Enabled && v.DeletedAt == nil
}
