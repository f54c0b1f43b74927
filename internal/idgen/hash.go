// Package idgen generates opaque identifiers for checklists and their items.
package idgen

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// IDLength is the number of base36 characters after the prefix. 20 characters
// carry ~103 bits, so any truncation to 12+ characters is still collision-free
// in practice across a whole store.
const IDLength = 20

// EncodeBase36 converts a byte slice to a base36 string of specified length.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	var result strings.Builder
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	// Keep least significant digits.
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// New returns prefix + "-" + IDLength random base36 characters.
func New(prefix string) string {
	u := uuid.New()
	return fmt.Sprintf("%s-%s", prefix, EncodeBase36(u[:], IDLength))
}

// NewChecklistID returns a fresh checklist identifier.
func NewChecklistID() string { return New("cl") }

// NewItemID returns a fresh checklist item identifier.
func NewItemID() string { return New("item") }
