package workflow

import (
	"fmt"

	"github.com/dmitrijs2005/betclever/internal/common"
)

// ProfileFields are the profile field names an admin may unlock.
// The profile carries a single lock, so any of them unlocks the whole profile.
var ProfileFields = []string{"firstName", "lastName", "phone", "street", "houseNumber", "postalCode", "city"}

// UnlockTarget is what an unlock request resolves to: either the profile
// or one document category.
type UnlockTarget struct {
	Field    string
	Profile  bool
	Category DocumentCategory
}

// ResolveUnlockField maps a field name to its target. Unknown names are a
// validation error so that a typo never resets a member's status.
func ResolveUnlockField(field string) (UnlockTarget, error) {
	for _, f := range ProfileFields {
		if f == field {
			return UnlockTarget{Field: field, Profile: true}, nil
		}
	}
	if c, err := ParseCategory(field); err == nil {
		return UnlockTarget{Field: field, Category: c}, nil
	}
	return UnlockTarget{}, common.NewValidationError("field", fmt.Sprintf("cannot unlock unknown field %q", field))
}
