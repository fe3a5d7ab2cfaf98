package cart

import "fmt"

// MergePolicy decides what happens to a guest cart when its visitor signs in.
type MergePolicy string

const (
	// MergeSum folds guest lines into the remote cart, summing quantities
	// of matching lines, then deletes the guest cart.
	MergeSum MergePolicy = "sum"

	// MergeKeep leaves the guest cart in local storage untouched. It comes
	// back into view after logout.
	MergeKeep MergePolicy = "keep"
)

// ParseMergePolicy accepts "sum", "keep", or "" (sum).
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case "", MergeSum:
		return MergeSum, nil
	case MergeKeep:
		return MergeKeep, nil
	}
	return "", fmt.Errorf("unknown merge policy %q (want sum or keep)", s)
}
