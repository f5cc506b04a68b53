package enums

import "fmt"

// ItemType distinguishes machine-deliverable listings from shipped goods.
type ItemType string

const (
	ItemTypeDigital  ItemType = "digital"
	ItemTypePhysical ItemType = "physical"
)

var validItemTypes = []ItemType{
	ItemTypeDigital,
	ItemTypePhysical,
}

// String implements fmt.Stringer.
func (i ItemType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemType.
func (i ItemType) IsValid() bool {
	for _, candidate := range validItemTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseItemType converts raw input into an ItemType.
func ParseItemType(value string) (ItemType, error) {
	for _, candidate := range validItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item type %q", value)
}
