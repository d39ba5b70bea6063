// Package services contains stateless domain services for the catalog bounded context.
// They enforce rules that operate purely on domain types.
package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/autoflex-io/inventory/services/catalog/domain/models"
)

// ValidateName enforces business rules for catalog names beyond the structural
// constraints enforced by models.NewName (length 1–255).
//
// Business rules:
//   - No leading or trailing whitespace
//   - No control characters (Unicode category Cc)
//   - No consecutive spaces
//   - Must not be only whitespace characters
func ValidateName(name models.Name) error {
	s := name.String()

	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name must not be only whitespace")
	}

	if s != strings.TrimSpace(s) {
		return fmt.Errorf("name must not have leading or trailing whitespace")
	}

	for _, r := range s {
		if unicode.IsControl(r) {
			return fmt.Errorf("name must not contain control characters")
		}
	}

	if strings.Contains(s, "  ") {
		return fmt.Errorf("name must not contain consecutive spaces")
	}

	return nil
}

// ValidateProduct checks a Product before it is persisted.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product cannot be nil")
	}
	return ValidateName(p.Name)
}

// ValidateRawMaterial checks a RawMaterial before it is persisted.
func ValidateRawMaterial(m *models.RawMaterial) error {
	if m == nil {
		return fmt.Errorf("raw material cannot be nil")
	}
	return ValidateName(m.Name)
}
