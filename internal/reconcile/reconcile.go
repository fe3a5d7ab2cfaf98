// Package reconcile plans how a guest cart folds into an authenticated
// cart when a visitor signs in.
//
// Planning is pure: the cart manager fetches the remote cart, asks for a
// plan, and executes it against the remote store.
package reconcile

import "storefront-sync/internal/model"

// MergePlan describes the remote mutations that absorb a guest cart.
// Apply updates before adds so an add never lands on a row that an
// update was about to touch.
type MergePlan struct {
	ToUpdate []LineUpdate // guest lines already present remotely
	ToAdd    []LineAdd    // guest lines with no remote counterpart
}

// LineUpdate raises the quantity of an existing remote line.
type LineUpdate struct {
	Key         string // guest line key this update absorbs
	LineID      string // server row id used by the update endpoint
	ProductID   string
	OldQuantity int
	NewQuantity int
}

// LineAdd creates a remote line from a guest line.
type LineAdd struct {
	Key       string
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

// PlanMerge sums guest quantities into the remote cart.
// Lines match on product, size and color. Guest lines with a non-positive
// quantity are ignored. Output follows guest order.
func PlanMerge(remote, guest []model.CartLine) *MergePlan {
	plan := &MergePlan{}

	remoteByKey := make(map[string]model.CartLine, len(remote))
	for _, line := range remote {
		remoteByKey[line.Key()] = line
	}

	// Guest storage can hold the same key twice after a hand edit; fold
	// duplicates first so each key yields at most one mutation.
	var order []string
	guestByKey := make(map[string]model.CartLine, len(guest))
	for _, line := range guest {
		if line.Quantity <= 0 {
			continue
		}
		key := line.Key()
		if seen, ok := guestByKey[key]; ok {
			seen.Quantity += line.Quantity
			guestByKey[key] = seen
			continue
		}
		guestByKey[key] = line
		order = append(order, key)
	}

	for _, key := range order {
		g := guestByKey[key]
		if r, ok := remoteByKey[key]; ok {
			plan.ToUpdate = append(plan.ToUpdate, LineUpdate{
				Key:         key,
				LineID:      r.ID,
				ProductID:   r.ProductID,
				OldQuantity: r.Quantity,
				NewQuantity: r.Quantity + g.Quantity,
			})
			continue
		}
		plan.ToAdd = append(plan.ToAdd, LineAdd{
			Key:       key,
			ProductID: g.ProductID,
			Size:      g.Size,
			Color:     g.Color,
			Quantity:  g.Quantity,
		})
	}

	return plan
}
