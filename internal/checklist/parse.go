// Package checklist holds the onboarding checklist domain rules: parsing LLM
// output into items, parsing "<role> for @user" command text, and progress
// and milestone arithmetic.
package checklist

import (
	"regexp"
	"strings"

	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

var (
	romanHeading   = regexp.MustCompile(`^[IVX]+\.\s`)
	numericHeading = regexp.MustCompile(`^[0-9]+\.\s`)
	numericBullet  = regexp.MustCompile(`^\d+[.)]\s+`)
	checkboxMarker = regexp.MustCompile(`^\[[ xX]?\]\s*`)
)

// isCategoryLine reports whether a trimmed line introduces a new section.
func isCategoryLine(line string) bool {
	return strings.HasSuffix(line, ":") ||
		strings.HasPrefix(line, "##") ||
		strings.HasPrefix(line, "**")
}

func categoryName(line string) string {
	name := strings.TrimLeft(line, "#")
	name = strings.ReplaceAll(name, "**", "")
	name = strings.TrimSpace(name)
	name = romanHeading.ReplaceAllString(name, "")
	name = numericHeading.ReplaceAllString(name, "")
	name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	return strings.TrimSpace(name)
}

func itemText(line string) string {
	switch {
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "• "):
		_, rest, _ := strings.Cut(line, " ")
		line = rest
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"), strings.HasPrefix(line, "•"):
		line = strings.TrimLeft(line, "-*•")
	default:
		line = numericBullet.ReplaceAllString(line, "")
	}
	line = checkboxMarker.ReplaceAllString(strings.TrimSpace(line), "")
	return strings.TrimSpace(line)
}

// ParseItems turns free-form checklist text into ordered items. Lines ending
// in ":" or starting with "##" or "**" open a category; every other non-empty
// line is an item, with any bullet or numbering stripped. Items before the
// first heading go to types.DefaultCategory.
func ParseItems(text string) []storage.NewItem {
	var items []storage.NewItem
	category := types.DefaultCategory

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if isCategoryLine(line) {
			if name := categoryName(line); name != "" {
				category = name
			}
			continue
		}
		if t := itemText(line); t != "" {
			items = append(items, storage.NewItem{Text: t, Category: category})
		}
	}
	return items
}
