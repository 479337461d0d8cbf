package reconcile

import (
	"log/slog"

	"github.com/alexanderramin/entsync/internal/domain"
	"github.com/alexanderramin/entsync/internal/policy"
)

// Summary aggregates the outcome of one reconciliation pass.
type Summary struct {
	UsersFetched  int
	UsersExcluded int
	Deleted       int
	Demoted       int
	Converged     int
	NoAction      int
	Failures      int
}

// Observer receives reconciliation events for logging. The reconciler and
// applier report through this interface only; tests use the noop
// implementation.
type Observer interface {
	PassStarted(cutoffs policy.Cutoffs)
	GroupCreated(displayName string, tier domain.License)
	UserEvaluated(rec *domain.EntitlementRecord, actions []policy.Action)
	UserSkipped(rec *domain.EntitlementRecord, err error)
	ActionFailed(rec *domain.EntitlementRecord, action policy.Action, err error)
	PassCompleted(sum Summary)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) PassStarted(policy.Cutoffs)                                 {}
func (NoopObserver) GroupCreated(string, domain.License)                        {}
func (NoopObserver) UserEvaluated(*domain.EntitlementRecord, []policy.Action)   {}
func (NoopObserver) UserSkipped(*domain.EntitlementRecord, error)               {}
func (NoopObserver) ActionFailed(*domain.EntitlementRecord, policy.Action, error) {}
func (NoopObserver) PassCompleted(Summary)                                      {}

// LogObserver writes reconciliation events to a slog.Logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs events to logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) PassStarted(cutoffs policy.Cutoffs) {
	o.logger.Info("deleting users that have not signed in since",
		"cutoff", cutoffs.DeleteBefore)
	o.logger.Info("demoting users to stakeholder that have not signed in since",
		"cutoff", cutoffs.DemoteBefore)
	o.logger.Info("leaving users alone that were created after",
		"cutoff", cutoffs.CreatedAfter)
}

func (o *LogObserver) GroupCreated(displayName string, tier domain.License) {
	o.logger.Info("created group entitlement", "group", displayName, "tier", string(tier))
}

func (o *LogObserver) UserEvaluated(rec *domain.EntitlementRecord, actions []policy.Action) {
	attrs := []any{
		"user", rec.User.DisplayName,
		"license", rec.AccessLevel.LicenseDisplayName,
	}
	if rec.LastAccessedDate != nil {
		attrs = append(attrs, "last_accessed", *rec.LastAccessedDate)
	}
	if len(actions) == 0 {
		o.logger.Info("user is compliant", attrs...)
		return
	}
	kinds := make([]string, len(actions))
	for i, a := range actions {
		kinds[i] = string(a.Kind)
	}
	attrs = append(attrs, "actions", kinds, "reason", actions[0].Reason)
	o.logger.Info("processing user", attrs...)
}

func (o *LogObserver) UserSkipped(rec *domain.EntitlementRecord, err error) {
	o.logger.Error("skipping user, directory lookup failed",
		"user", rec.User.PrincipalName, "error", err.Error())
}

func (o *LogObserver) ActionFailed(rec *domain.EntitlementRecord, action policy.Action, err error) {
	o.logger.Error("action failed",
		"user", rec.User.PrincipalName,
		"action", string(action.Kind),
		"error", err.Error())
}

func (o *LogObserver) PassCompleted(sum Summary) {
	o.logger.Info("reconciliation pass completed",
		"users_fetched", sum.UsersFetched,
		"users_excluded", sum.UsersExcluded,
		"deleted", sum.Deleted,
		"demoted", sum.Demoted,
		"converged", sum.Converged,
		"no_action", sum.NoAction,
		"failures", sum.Failures)
}
