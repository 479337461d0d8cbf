package policy

import "time"

// Cutoffs holds the three policy instants derived from the configured day
// offsets and the current time.
type Cutoffs struct {
	// DeleteBefore: users whose last access predates this are deletion
	// candidates.
	DeleteBefore time.Time
	// DemoteBefore: users whose last access predates this are demotion
	// candidates.
	DemoteBefore time.Time
	// CreatedAfter: users created after this are inside the grace period
	// and are never deleted or demoted. New accounts have not had a chance
	// to sign in yet.
	CreatedAfter time.Time
}

// ComputeCutoffs derives the cutoff instants from now. Day counts are
// validated at configuration load, not here.
func ComputeCutoffs(now time.Time, daysBeforeDeletion, daysBeforeDemotion, daysGraceAfterCreation int) Cutoffs {
	return Cutoffs{
		DeleteBefore: now.AddDate(0, 0, -daysBeforeDeletion),
		DemoteBefore: now.AddDate(0, 0, -daysBeforeDemotion),
		CreatedAfter: now.AddDate(0, 0, -daysGraceAfterCreation),
	}
}
