package testutil

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alexanderramin/entsync/internal/domain"
)

// FakeConnection is an in-memory work-tracking directory. It mimics the
// remote semantics the reconciler depends on: adding a member to a policy
// group flips the user's access level to that group's license rule with a
// group-rule assignment source, visible on the next entitlement fetch.
type FakeConnection struct {
	Groups []domain.GroupEntitlement
	Users  []domain.EntitlementRecord

	// Calls records every operation in order, e.g. "AddGroupMember g1 u1".
	Calls []string
	// FailOn forces an error for every call of the named operation.
	FailOn map[string]error

	Reevaluations int
}

// NewFakeConnection creates an empty fake organization.
func NewFakeConnection() *FakeConnection {
	return &FakeConnection{FailOn: map[string]error{}}
}

func (f *FakeConnection) record(op string, args ...string) error {
	call := op
	for _, a := range args {
		call += " " + a
	}
	f.Calls = append(f.Calls, call)
	return f.FailOn[op]
}

// CallsTo returns how many times an operation was invoked.
func (f *FakeConnection) CallsTo(op string) int {
	n := 0
	for _, c := range f.Calls {
		if c == op || len(c) > len(op) && c[:len(op)+1] == op+" " {
			n++
		}
	}
	return n
}

func (f *FakeConnection) ListGroupEntitlements(ctx context.Context) ([]domain.GroupEntitlement, error) {
	if err := f.record("ListGroupEntitlements"); err != nil {
		return nil, err
	}
	out := make([]domain.GroupEntitlement, len(f.Groups))
	copy(out, f.Groups)
	return out, nil
}

func (f *FakeConnection) CreateGroupEntitlement(ctx context.Context, ge domain.GroupEntitlement) (domain.GroupEntitlement, error) {
	if err := f.record("CreateGroupEntitlement", ge.Group.DisplayName); err != nil {
		return domain.GroupEntitlement{}, err
	}
	ge.ID = uuid.New().String()
	f.Groups = append(f.Groups, ge)
	return ge, nil
}

func (f *FakeConnection) ListUserEntitlements(ctx context.Context) ([]domain.EntitlementRecord, error) {
	if err := f.record("ListUserEntitlements"); err != nil {
		return nil, err
	}
	out := make([]domain.EntitlementRecord, len(f.Users))
	copy(out, f.Users)
	return out, nil
}

func (f *FakeConnection) GetUserEntitlement(ctx context.Context, userID string) (domain.EntitlementRecord, error) {
	if err := f.record("GetUserEntitlement", userID); err != nil {
		return domain.EntitlementRecord{}, err
	}
	rec := f.find(userID)
	if rec == nil {
		return domain.EntitlementRecord{}, fmt.Errorf("user %s not found", userID)
	}
	return *rec, nil
}

func (f *FakeConnection) AddGroupMember(ctx context.Context, groupID, userID string) error {
	if err := f.record("AddGroupMember", groupID, userID); err != nil {
		return err
	}
	rec := f.find(userID)
	if rec == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	for _, g := range f.Groups {
		if g.ID != groupID {
			continue
		}
		rec.GroupAssignments = append(rec.GroupAssignments, g)
		rec.AccessLevel = g.LicenseRule
		rec.AccessLevel.AssignmentSource = domain.AssignmentSourceGroupRule
		return nil
	}
	return fmt.Errorf("group %s not found", groupID)
}

func (f *FakeConnection) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	if err := f.record("RemoveGroupMember", groupID, userID); err != nil {
		return err
	}
	rec := f.find(userID)
	if rec == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	kept := rec.GroupAssignments[:0]
	for _, g := range rec.GroupAssignments {
		if g.ID != groupID {
			kept = append(kept, g)
		}
	}
	rec.GroupAssignments = kept
	return nil
}

func (f *FakeConnection) RemoveDirectAssignment(ctx context.Context, userID string) error {
	return f.record("RemoveDirectAssignment", userID)
}

func (f *FakeConnection) DeleteUserEntitlement(ctx context.Context, userID string) error {
	if err := f.record("DeleteUserEntitlement", userID); err != nil {
		return err
	}
	for i, u := range f.Users {
		if u.ID == userID {
			f.Users = append(f.Users[:i], f.Users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("user %s not found", userID)
}

func (f *FakeConnection) TriggerRuleReevaluation(ctx context.Context) error {
	if err := f.record("TriggerRuleReevaluation"); err != nil {
		return err
	}
	f.Reevaluations++
	return nil
}

func (f *FakeConnection) find(userID string) *domain.EntitlementRecord {
	for i := range f.Users {
		if f.Users[i].ID == userID {
			return &f.Users[i]
		}
	}
	return nil
}

// FakeDirectory is an in-memory identity directory.
type FakeDirectory struct {
	Verdicts map[string]domain.IdentityVerdict
	// LookupErr forces GetIdentity to fail for a principal name.
	LookupErr map[string]error
	// DeleteErr forces every DeleteIdentity call to fail.
	DeleteErr error
	Deleted   []string
}

// NewFakeDirectory creates an empty fake directory. Unknown principals
// yield a not-found verdict, not an error.
func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		Verdicts:  map[string]domain.IdentityVerdict{},
		LookupErr: map[string]error{},
	}
}

func (f *FakeDirectory) GetIdentity(ctx context.Context, principalName string) (domain.IdentityVerdict, error) {
	if err := f.LookupErr[principalName]; err != nil {
		return domain.IdentityVerdict{}, err
	}
	if v, ok := f.Verdicts[principalName]; ok {
		return v, nil
	}
	return domain.IdentityVerdict{PrincipalName: principalName}, nil
}

func (f *FakeDirectory) DeleteIdentity(ctx context.Context, principalName string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, principalName)
	delete(f.Verdicts, principalName)
	return nil
}
