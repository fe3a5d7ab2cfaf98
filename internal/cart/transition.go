package cart

import (
	"context"
	"errors"
	"log/slog"

	"storefront-sync/internal/adapter"
	"storefront-sync/internal/identity"
	"storefront-sync/internal/model"
	"storefront-sync/internal/reconcile"
)

// OnIdentityChange resyncs after a transition. On sign-in with MergeSum
// the guest cart is folded into the remote cart first. It is shaped as an
// identity.Listener.
func (m *Manager) OnIdentityChange(ctx context.Context, from, to identity.State) {
	if to.Loading {
		return
	}
	m.follow.Move(to.Audience(m.sessionID))
	if to.Authenticated() && !from.Authenticated() && m.policy == MergeSum {
		if err := m.mergeGuest(ctx, to); err != nil {
			m.logger.Warn("guest cart merge failed, keeping guest cart",
				slog.String("user_id", to.UserID()),
				slog.String("error", err.Error()),
			)
		}
	}
	m.Refresh(ctx)
}

// mergeGuest applies the guest cart to the remote cart. Guest lines that
// were applied are removed from local storage even when a later mutation
// fails, so a retry never applies them twice.
func (m *Manager) mergeGuest(ctx context.Context, to identity.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	guest, ok, err := m.readGuest(ctx)
	if err != nil {
		return err
	}
	guest = positive(guest)
	if !ok || len(guest) == 0 {
		return nil
	}

	remote, err := m.remote.FetchCart(ctx, to.Token)
	if err != nil {
		return err
	}

	plan := reconcile.PlanMerge(remote, guest)
	applied := make(map[string]bool)
	var applyErr error

	for _, u := range plan.ToUpdate {
		if err := m.remote.UpdateCartItem(ctx, to.Token, u.LineID, u.NewQuantity); err != nil {
			applyErr = err
			break
		}
		applied[u.Key] = true
	}
	if applyErr == nil {
		for _, a := range plan.ToAdd {
			err := m.remote.AddToCart(ctx, to.Token, adapter.AddToCartRequest{
				ProductID: a.ProductID,
				Quantity:  a.Quantity,
				Size:      a.Size,
				Color:     a.Color,
			})
			if err != nil {
				applyErr = err
				break
			}
			applied[a.Key] = true
		}
	}

	remaining := guest[:0:0]
	for _, l := range guest {
		if !applied[l.ID] {
			remaining = append(remaining, l)
		}
	}
	if err := m.writeGuest(ctx, remaining); err != nil {
		return errors.Join(applyErr, err)
	}
	if applyErr != nil {
		return applyErr
	}

	m.logger.Info("merged guest cart",
		slog.String("user_id", to.UserID()),
		slog.Int("updated", len(plan.ToUpdate)),
		slog.Int("added", len(plan.ToAdd)),
		slog.Int("units", model.CountUnits(guest)),
	)
	return nil
}
