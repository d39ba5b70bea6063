package models

import "fmt"

// Code prefixes. Codes are generated from database sequences: P001, RM001, ...
const (
	ProductCodePrefix     = "P"
	RawMaterialCodePrefix = "RM"
)

// ProductCode formats a product sequence value as a code.
func ProductCode(seq int64) string {
	return formatCode(ProductCodePrefix, seq)
}

// RawMaterialCode formats a raw material sequence value as a code.
func RawMaterialCode(seq int64) string {
	return formatCode(RawMaterialCodePrefix, seq)
}

// formatCode zero-pads to three digits; larger values widen naturally.
func formatCode(prefix string, seq int64) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}
