package project

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Long words common in org and workspace titles get shortened before
// slugging, so "Acme Technologies Department" becomes acme-tech-dept.
var slugAbbreviations = []struct {
	word *regexp.Regexp
	abbr string
}{
	{regexp.MustCompile(`\bcorporation\b`), "corp"},
	{regexp.MustCompile(`\bincorporated\b`), "inc"},
	{regexp.MustCompile(`\bcompany\b`), "co"},
	{regexp.MustCompile(`\blimited\b`), "ltd"},
	{regexp.MustCompile(`\btechnologies\b`), "tech"},
	{regexp.MustCompile(`\btechnology\b`), "tech"},
	{regexp.MustCompile(`\bsolutions\b`), "sol"},
	{regexp.MustCompile(`\binternational\b`), "intl"},
	{regexp.MustCompile(`\bdevelopment\b`), "dev"},
	{regexp.MustCompile(`\borganization\b`), "org"},
	{regexp.MustCompile(`\bworkspace\b`), "ws"},
	{regexp.MustCompile(`\bproject\b`), "proj"},
	{regexp.MustCompile(`\bmanagement\b`), "mgmt"},
	{regexp.MustCompile(`\bdepartment\b`), "dept"},
	{regexp.MustCompile(`\bsystem\b`), "sys"},
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugCollapse = regexp.MustCompile(`[\s-]+`)
)

// Slugify converts a title into a URL-safe shortened slug.
func Slugify(title string) string {
	s := strings.ToLower(title)
	for _, a := range slugAbbreviations {
		s = a.word.ReplaceAllString(s, a.abbr)
	}
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// UniqueSlug appends an increasing numeric suffix until exists reports the
// candidate free.
func UniqueSlug(ctx context.Context, title string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "untitled"
	}
	slug := base
	for counter := 1; ; counter++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
