package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Cleanup runs the two reconciliation sweeps back to back: first expire
// stale pending holds, then purge everything already cancelled.  The
// returned count is the number of orders processed across both sweeps.
// Both sweeps keep going when an individual order fails, so one
// poisoned row cannot stall reclamation for everyone else.
func (r *OrderRepo) Cleanup(ctx context.Context) (int, error) {
	expired, err := r.ExpireDueOrders(ctx)
	if err != nil {
		return expired, err
	}
	purged, err := r.PurgeCancelled(ctx)
	return expired + purged, err
}

// ExpireDueOrders cancels every pending order whose hold deadline has
// passed and releases its seats.  Each order is handled in its own
// transaction via ForceCancel; a failure is logged and the sweep moves
// on.  Orders that a concurrent payment settles between the select and
// the cancel are skipped harmlessly (the status guard makes ForceCancel
// a no-op reported as NotPendingError, which the sweep ignores).
func (r *OrderRepo) ExpireDueOrders(ctx context.Context) (int, error) {
	ids, err := r.selectIDs(ctx,
		`SELECT id FROM orders WHERE status = 'pending' AND reservation_expires_at < UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		if err := r.ForceCancel(ctx, id); err != nil {
			var notPending *NotPendingError
			if errors.As(err, &notPending) {
				continue // settled or cancelled by someone else mid-sweep
			}
			logrus.WithField("order_id", id).WithError(err).Error("failed to cancel expired order")
			continue
		}
		count++
	}
	if count > 0 {
		logrus.WithField("expired", count).Info("expired stale order holds")
	}
	return count, nil
}

// PurgeCancelled physically deletes every cancelled order along with
// its tickets and product lines.  Deletion order is children first,
// then the order row, to satisfy foreign keys.  Running the purge twice
// in a row is a no-op the second time.
func (r *OrderRepo) PurgeCancelled(ctx context.Context) (int, error) {
	ids, err := r.selectIDs(ctx, `SELECT id FROM orders WHERE status = 'cancelled'`)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		if err := r.Delete(ctx, id); err != nil {
			logrus.WithField("order_id", id).WithError(err).Error("failed to purge cancelled order")
			continue
		}
		count++
	}
	if count > 0 {
		logrus.WithField("purged", count).Info("purged cancelled orders")
	}
	return count, nil
}

// selectIDs collects the ids matched by a single-column query.
func (r *OrderRepo) selectIDs(ctx context.Context, query string) ([]uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
