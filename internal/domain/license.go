package domain

import "strings"

// License is one tier from the fixed Azure DevOps access-level enumeration.
type License string

const (
	LicenseBasic                  License = "Basic"
	LicenseBasicTestPlans         License = "Basic + Test Plans"
	LicenseStakeholder            License = "Stakeholder"
	LicenseVisualStudioSubscriber License = "Visual Studio Subscriber"
)

// Licenses returns every managed license tier, in a stable order.
func Licenses() []License {
	return []License{
		LicenseBasic,
		LicenseBasicTestPlans,
		LicenseStakeholder,
		LicenseVisualStudioSubscriber,
	}
}

// IsVisualStudio reports whether a license display name belongs to the
// Visual Studio subscriber family. The remote system uses several display
// names for subscriber licenses, so this is a substring check rather than
// an equality check against the enumeration.
func IsVisualStudio(licenseDisplayName string) bool {
	return strings.Contains(licenseDisplayName, "Visual Studio")
}

// LicenseFromDisplayName maps a license display name to a managed tier.
// Visual Studio subscriber variants all map to LicenseVisualStudioSubscriber.
// ok is false for display names outside the managed enumeration.
func LicenseFromDisplayName(displayName string) (License, bool) {
	switch License(displayName) {
	case LicenseBasic, LicenseBasicTestPlans, LicenseStakeholder:
		return License(displayName), true
	}
	if IsVisualStudio(displayName) {
		return LicenseVisualStudioSubscriber, true
	}
	return "", false
}

// GroupDisplayName derives the display name of the policy-managed group for
// a tier. Group names cannot contain the + symbol in the remote system, so
// it is replaced with a dash (not stripped).
func GroupDisplayName(prefix string, tier License, suffix string) string {
	return strings.ReplaceAll(prefix+string(tier)+suffix, "+", "-")
}
