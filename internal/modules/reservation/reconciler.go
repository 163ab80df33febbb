package reservation

import (
	"context"
	"errors"
	"time"

	"tourmarket/internal/domain"
	"tourmarket/internal/gateway"
	"tourmarket/internal/repository"
)

// Reconciler resolves reservations left in awaiting_payment after a lost
// confirmation outcome. It asks the gateway for each intent's terminal
// state and finalizes through the same compare-and-set path as a live
// confirmation, so a racing user click and the sweep can never both record
// an outcome.
type Reconciler struct {
	svc     *Service
	minAge  time.Duration
	batch   int
	loggerf func(format string, args ...interface{})
}

type ReconcileStats struct {
	Scanned   int
	Confirmed int
	Failed    int
	Pending   int
	Errors    int
}

func NewReconciler(svc *Service, minAge time.Duration, batch int, loggerf func(format string, args ...interface{})) *Reconciler {
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Reconciler{svc: svc, minAge: minAge, batch: batch, loggerf: loggerf}
}

// Run performs one sweep. Intents the gateway still reports as unconfirmed
// are left alone for the next pass.
func (rc *Reconciler) Run(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats

	cutoff := time.Now().UTC().Add(-rc.minAge)
	stuck, err := rc.svc.reservations.AwaitingPaymentOlderThan(ctx, cutoff, rc.batch)
	if err != nil {
		return stats, err
	}
	stats.Scanned = len(stuck)

	for i := range stuck {
		r := &stuck[i]
		if r.IntentID == "" {
			// Crash between Create and SetIntent; there is no gateway
			// side to reconcile against, an admin decides.
			stats.Pending++
			continue
		}

		st, err := rc.svc.gateway.GetIntent(ctx, r.IntentID)
		if err != nil {
			rc.loggerf("level=warn msg=reconcile intent lookup failed reservation_id=%d intent_id=%s err=%v", r.ID, r.IntentID, err)
			stats.Errors++
			continue
		}

		switch st.State {
		case gateway.IntentSucceeded:
			if rc.resolve(ctx, r, domain.PaymentSucceeded, st.GatewayTxnID) {
				stats.Confirmed++
			} else {
				stats.Errors++
			}
		case gateway.IntentDeclined:
			if rc.resolve(ctx, r, domain.PaymentFailed, st.GatewayTxnID) {
				stats.Failed++
			} else {
				stats.Errors++
			}
		default:
			stats.Pending++
		}
	}

	rc.loggerf("level=info msg=reconcile sweep done scanned=%d confirmed=%d failed=%d pending=%d errors=%d",
		stats.Scanned, stats.Confirmed, stats.Failed, stats.Pending, stats.Errors)
	return stats, nil
}

func (rc *Reconciler) resolve(ctx context.Context, r *domain.Reservation, outcome domain.PaymentOutcome, txnID string) bool {
	result, err := rc.svc.finalize(ctx, r, outcome, txnID)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Someone finalized while we were sweeping; that is the point
			// of the CAS.
			return true
		}
		rc.loggerf("level=error msg=reconcile finalize failed reservation_id=%d err=%v", r.ID, err)
		return false
	}

	if result.Outcome == domain.PaymentSucceeded && !result.AlreadyFinal {
		if nerr := rc.svc.notifyConfirmed(ctx, result.Reservation); nerr != nil {
			rc.loggerf("level=warn msg=reconcile notification failed reservation_id=%d err=%v", r.ID, nerr)
		}
	}
	return true
}
