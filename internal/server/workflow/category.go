package workflow

import (
	"fmt"

	"github.com/dmitrijs2005/betclever/internal/common"
)

// DocumentCategory is one of the three document kinds a member uploads.
type DocumentCategory string

const (
	CategoryIdentity DocumentCategory = "identity"
	CategoryCard     DocumentCategory = "card"
	CategoryBank     DocumentCategory = "bank"
)

var categories = []DocumentCategory{CategoryIdentity, CategoryCard, CategoryBank}

// Categories returns the required categories in canonical order.
func Categories() []DocumentCategory {
	return append([]DocumentCategory(nil), categories...)
}

func (c DocumentCategory) Valid() bool {
	switch c {
	case CategoryIdentity, CategoryCard, CategoryBank:
		return true
	}
	return false
}

// ParseCategory accepts the canonical names and the legacy alias "id".
func ParseCategory(s string) (DocumentCategory, error) {
	if s == "id" {
		return CategoryIdentity, nil
	}
	c := DocumentCategory(s)
	if !c.Valid() {
		return "", common.NewValidationError("category", fmt.Sprintf("unknown document category %q", s))
	}
	return c, nil
}
