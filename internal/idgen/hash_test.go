package idgen

import (
	"strings"
	"testing"
)

func TestEncodeBase36(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		length int
		want   string
	}{
		{"zero pads", []byte{0}, 4, "0000"},
		{"single byte", []byte{35}, 2, "0z"},
		{"two digits", []byte{36}, 2, "10"},
		{"truncates to least significant", []byte{0x01, 0x00}, 1, "4"}, // 256 = "74"
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeBase36(tt.data, tt.length); got != tt.want {
				t.Errorf("EncodeBase36(%v, %d) = %q, want %q", tt.data, tt.length, got, tt.want)
			}
		})
	}
}

func TestNewShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	prefixes := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		id := NewItemID()
		if !strings.HasPrefix(id, "item-") {
			t.Fatalf("NewItemID() = %q, want item- prefix", id)
		}
		if got := len(id) - len("item-"); got != IDLength {
			t.Fatalf("NewItemID() body length = %d, want %d", got, IDLength)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true

		// 12 characters of body is the shortest truncation the bot uses.
		short := id[:len("item-")+12]
		if prefixes[short] {
			t.Fatalf("prefix collision at %q", short)
		}
		prefixes[short] = true
	}
}

func TestNewChecklistID(t *testing.T) {
	if id := NewChecklistID(); !strings.HasPrefix(id, "cl-") {
		t.Errorf("NewChecklistID() = %q, want cl- prefix", id)
	}
}
