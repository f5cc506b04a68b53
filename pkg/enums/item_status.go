package enums

import "fmt"

// ItemStatus controls whether a listing is purchasable.
type ItemStatus string

const (
	ItemStatusActive  ItemStatus = "active"
	ItemStatusPaused  ItemStatus = "paused"
	ItemStatusSoldOut ItemStatus = "sold_out"
	ItemStatusDeleted ItemStatus = "deleted"
)

var validItemStatuses = []ItemStatus{
	ItemStatusActive,
	ItemStatusPaused,
	ItemStatusSoldOut,
	ItemStatusDeleted,
}

// String implements fmt.Stringer.
func (i ItemStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemStatus.
func (i ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// IsPurchasable reports whether new orders may be created for the item.
func (i ItemStatus) IsPurchasable() bool {
	return i == ItemStatusActive
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
