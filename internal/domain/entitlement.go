package domain

import "time"

// AssignmentSourceGroupRule is the assignment source reported by the remote
// system when a user's access level is derived from a group rule rather than
// a direct (explicit) assignment.
const AssignmentSourceGroupRule = "groupRule"

// User identifies the person behind an entitlement record.
type User struct {
	PrincipalName string `json:"principalName"`
	DisplayName   string `json:"displayName"`
	OriginID      string `json:"originId,omitempty"`
	Descriptor    string `json:"descriptor,omitempty"`
}

// LicenseRule describes an access level: which license it grants and how it
// was assigned. The numeric codes are remote-specific and opaque beyond the
// display-name equality this system needs.
type LicenseRule struct {
	AccountLicenseType string `json:"accountLicenseType"`
	AssignmentSource   string `json:"assignmentSource"`
	LicenseDisplayName string `json:"licenseDisplayName"`
	LicensingSource    string `json:"licensingSource"`
	MsdnLicenseType    string `json:"msdnLicenseType"`
	Status             string `json:"status"`
	StatusMessage      string `json:"statusMessage"`
}

// NewLicenseRule builds the license rule for a policy-managed group granting
// the given tier, with the remote system's numeric codes for that tier.
func NewLicenseRule(tier License) LicenseRule {
	rule := LicenseRule{
		LicensingSource:    "1",
		AccountLicenseType: "0",
		MsdnLicenseType:    "0",
		LicenseDisplayName: string(tier),
		Status:             "0",
		AssignmentSource:   "1",
	}
	switch tier {
	case LicenseBasic:
		rule.AccountLicenseType = "2"
	case LicenseBasicTestPlans:
		rule.AccountLicenseType = "4"
	case LicenseStakeholder:
		rule.AccountLicenseType = "5"
	case LicenseVisualStudioSubscriber:
		rule.LicensingSource = "2"
		rule.MsdnLicenseType = "1"
	}
	return rule
}

// Group is the directory object backing a group entitlement.
type Group struct {
	DisplayName string `json:"displayName"`
	Origin      string `json:"origin"`
	SubjectKind string `json:"subjectKind"`
}

// GroupEntitlement is a policy-managed group whose membership confers a
// license tier.
type GroupEntitlement struct {
	ID           string      `json:"id,omitempty"`
	Group        Group       `json:"group"`
	LicenseRule  LicenseRule `json:"licenseRule"`
	LastExecuted string      `json:"lastExecuted,omitempty"`
	Status       int         `json:"status,omitempty"`
}

// NewGroupEntitlement builds the group entitlement to create for a tier.
func NewGroupEntitlement(displayName string, tier License) GroupEntitlement {
	return GroupEntitlement{
		Group: Group{
			DisplayName: displayName,
			Origin:      "vsts",
			SubjectKind: "group",
		},
		LicenseRule: NewLicenseRule(tier),
	}
}

// EntitlementRecord is one user's access grant in the organization.
//
// GroupAssignments is a cache of the user's policy-group memberships. It is
// populated by the initial list call and must be refreshed from the remote
// system after any membership mutation; the remote system does not reflect
// membership changes synchronously in previously fetched records.
type EntitlementRecord struct {
	ID               string             `json:"id"`
	User             User               `json:"user"`
	AccessLevel      LicenseRule        `json:"accessLevel"`
	LastAccessedDate *time.Time         `json:"lastAccessedDate,omitempty"`
	DateCreated      time.Time          `json:"dateCreated"`
	GroupAssignments []GroupEntitlement `json:"groupAssignments,omitempty"`
}

// AssignedByGroupRule reports whether the record's access level comes from a
// group rule rather than a direct assignment.
func (r *EntitlementRecord) AssignedByGroupRule() bool {
	return r.AccessLevel.AssignmentSource == AssignmentSourceGroupRule
}

// Tier maps the record's license display name to a managed tier.
func (r *EntitlementRecord) Tier() (License, bool) {
	return LicenseFromDisplayName(r.AccessLevel.LicenseDisplayName)
}
