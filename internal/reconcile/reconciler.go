// Package reconcile applies the eligibility rules to a normalized
// submission: the runner must be on the registration roster, the
// activity must not have been claimed before, and the per-runner
// submission quota must not be exhausted.
package reconcile

import (
	"context"
	"strings"

	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/ledger"
	"github.com/charityrun/runproof/internal/utils"
)

// Decision is the reconciliation outcome for one submission.
type Decision string

const (
	Accepted                  Decision = "accepted"
	RejectedNotRegistered     Decision = "rejected_not_registered"
	RejectedDuplicateActivity Decision = "rejected_duplicate_activity"
	RejectedQuotaExceeded     Decision = "rejected_quota_exceeded"
	Indeterminate             Decision = "indeterminate"
)

// Reconciler checks submissions against the ledger. Both ledger checks
// fail closed: when the backend cannot answer, the decision is
// Indeterminate and nothing is recorded.
type Reconciler struct {
	store  ledger.Store
	quota  int
	logger utils.Logger
}

// New creates a reconciler. quota is the maximum number of accepted
// submissions per runner; zero disables the quota check.
func New(store ledger.Store, quota int, logger utils.Logger) *Reconciler {
	return &Reconciler{store: store, quota: quota, logger: logger}
}

// Check runs the full rule chain for email and activityRef without
// recording anything. The error carries the machine-readable code
// matching the decision.
func (r *Reconciler) Check(ctx context.Context, email, activityRef string) (Decision, error) {
	email = utils.NormalizeEmail(email)
	activityRef = strings.TrimSpace(activityRef)

	registered, err := r.store.IsRegistered(ctx, email)
	if err != nil {
		r.logger.Errorf("registration lookup failed for %s: %v", email, err)
		return Indeterminate, apperrors.Wrap(err, apperrors.CodeLedgerUnavailable,
			"could not verify registration, submission not recorded")
	}
	if !registered {
		return RejectedNotRegistered, apperrors.Newf(apperrors.CodeNotRegistered,
			"%s is not on the registration roster", email)
	}

	entries, err := r.store.ListEntries(ctx)
	if err != nil {
		r.logger.Errorf("submission log read failed: %v", err)
		return Indeterminate, apperrors.Wrap(err, apperrors.CodeLedgerUnavailable,
			"could not read the submission log, submission not recorded")
	}

	accepted := 0
	for _, entry := range entries {
		if strings.TrimSpace(entry.ActivityRef) == activityRef {
			return RejectedDuplicateActivity, apperrors.Newf(apperrors.CodeDuplicateActivity,
				"activity %s was already submitted", activityRef)
		}
		if entry.Email == email {
			accepted++
		}
	}
	if r.quota > 0 && accepted >= r.quota {
		return RejectedQuotaExceeded, apperrors.Newf(apperrors.CodeQuotaExceeded,
			"%s has already used all %d submissions", email, r.quota)
	}

	return Accepted, nil
}

// Record appends an accepted submission to the ledger.
func (r *Reconciler) Record(ctx context.Context, entry ledger.Entry) error {
	entry.Email = utils.NormalizeEmail(entry.Email)
	entry.ActivityRef = strings.TrimSpace(entry.ActivityRef)

	if err := r.store.Append(ctx, entry); err != nil {
		return apperrors.Wrap(err, apperrors.CodePersistenceFailed,
			"submission passed all checks but could not be recorded")
	}
	return nil
}
