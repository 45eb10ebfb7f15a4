package testcase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxTitleLength = 120
	titlePrefix    = "Verify that"
	fallbackTitle  = "Untitled Test Case"
)

var (
	categoryPrefixRe = regexp.MustCompile(`(?i)^\s*\[(Positive|Negative|Edge Case|Data Flow|Ambiguity)\]\s*`)
	stepNumberRe     = regexp.MustCompile(`^\s*\d+[.)]\s*`)
)

// StripStepNumber removes a leading "N." or "N)" numbering from a step.
func StripStepNumber(step string) string {
	return strings.TrimSpace(stepNumberRe.ReplaceAllString(step, ""))
}

// FinalTitle builds the title a test case is persisted under: the category
// prefix is stripped, empty titles fall back to the first step or the
// expected result, long titles are truncated, and every title starts with
// "Verify that".
func FinalTitle(tc TestCase) string {
	title := categoryPrefixRe.ReplaceAllString(strings.TrimSpace(tc.Title), "")
	title = strings.TrimSpace(title)

	if title == "" {
		title = titleFromContent(tc)
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength]) + "..."
	}
	if !strings.HasPrefix(strings.ToLower(title), strings.ToLower(titlePrefix)) {
		title = titlePrefix + " " + title
	}
	return title
}

func titleFromContent(tc TestCase) string {
	for _, step := range tc.Description {
		if cleaned := StripStepNumber(step); cleaned != "" {
			return cleaned
		}
	}
	if expected := strings.TrimSpace(tc.ExpectedResult); expected != "" {
		return fmt.Sprintf("Test for: %s", expected)
	}
	return fallbackTitle
}

// NormalizeTitle reduces a title to a comparison key: lowercase with all
// whitespace, punctuation, and control characters removed.
func NormalizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsControl(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, title)
}

// PrepareForUpload rewrites each case's title via FinalTitle and drops cases
// whose normalized title duplicates an earlier one, keeping the first
// occurrence. This runs before the upload transaction; the transaction
// itself never mutates cases.
func PrepareForUpload(cases []TestCase) []TestCase {
	seen := make(map[string]struct{}, len(cases))
	prepared := make([]TestCase, 0, len(cases))

	for _, tc := range cases {
		tc.Title = FinalTitle(tc)
		key := NormalizeTitle(tc.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		prepared = append(prepared, tc)
	}
	return prepared
}
