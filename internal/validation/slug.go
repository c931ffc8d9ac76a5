package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	minSlugLength = 3
	maxSlugLength = 96
)

var postSlugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var reservedPostSlugs = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"new":     {},
	"edit":    {},
	"drafts":  {},
	"search":  {},
	"slug":    {},
	"feed":    {},
	"rss":     {},
	"tags":    {},
	"swagger": {},
	"metrics": {},
	"health":  {},
}

// ValidatePostSlug validates post slug format and reserved names.
func ValidatePostSlug(slug string) error {
	if len(slug) < minSlugLength || len(slug) > maxSlugLength {
		return fmt.Errorf("slug must be %d-%d characters", minSlugLength, maxSlugLength)
	}

	if !postSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be lowercase letters, numbers and single hyphens, and cannot start or end with a hyphen")
	}

	if _, exists := reservedPostSlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

// Slugify derives a candidate slug from a title.
func Slugify(title string) string {
	decomposed := norm.NFKD.String(strings.ToLower(title))
	var b strings.Builder
	dash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s
}
