// Package authz decides who may run manager-only commands.
//
// The default policy reads the free-text title on a user's Slack profile and
// looks for manager-indicating keywords. That is a heuristic, not access
// control; FilePolicy lets operators pin explicit allow and deny lists.
package authz

import (
	"context"
	"fmt"
	"strings"
)

// Policy decides whether a user may run manager-only commands.
type Policy interface {
	IsAuthorizedManager(ctx context.Context, userID string) (bool, error)
}

// TitleLookup returns the profile title for a user.
type TitleLookup interface {
	UserTitle(ctx context.Context, userID string) (string, error)
}

// DefaultKeywords mark a profile title as belonging to a manager.
var DefaultKeywords = []string{
	"manager", "director", "lead", "head", "chief",
	"vp", "vice president", "president",
	"ceo", "cto", "cfo", "coo", "supervisor",
}

// TitleMatches reports whether title contains any keyword, case-insensitively.
func TitleMatches(title string, keywords []string) bool {
	t := strings.ToLower(title)
	for _, k := range keywords {
		if k != "" && strings.Contains(t, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// TitlePolicy authorizes users whose profile title contains a keyword.
type TitlePolicy struct {
	Titles   TitleLookup
	Keywords []string // nil means DefaultKeywords
}

// NewTitlePolicy returns a TitlePolicy using DefaultKeywords.
func NewTitlePolicy(titles TitleLookup) *TitlePolicy {
	return &TitlePolicy{Titles: titles}
}

func (p *TitlePolicy) IsAuthorizedManager(ctx context.Context, userID string) (bool, error) {
	title, err := p.Titles.UserTitle(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("fetch title for %s: %w", userID, err)
	}
	keywords := p.Keywords
	if keywords == nil {
		keywords = DefaultKeywords
	}
	return TitleMatches(title, keywords), nil
}

// AllowAll authorizes everyone. It exists for local development only.
type AllowAll struct{}

func (AllowAll) IsAuthorizedManager(context.Context, string) (bool, error) { return true, nil }
