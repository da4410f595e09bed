// Package parse turns raw submitted order text into a validated amount and
// category. The rules are deliberately strict: a wrongly parsed order is
// worse than a rejected one the submitter can fix and resend.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// Categories the extractor can resolve. Keyword co-occurrence is settled by
// a fixed priority: unsafe > fund > safe_slow > safe_fast.
const (
	CategoryUnsafe   = "unsafe"
	CategoryFund     = "fund"
	CategorySafeSlow = "safe_slow"
	CategorySafeFast = "safe_fast"
)

// Amounts outside this range are never a plausible order size.
const (
	minAmount = 100
	maxAmount = 1_000_000
)

var (
	commaInNumber = regexp.MustCompile(`(\d+),(\d+)`)

	// Amount detection, strictest first: a number next to an amount or
	// category keyword, then "cp: 5000" style, then "need 5000".
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:cp|c\.?p)\b`),
		regexp.MustCompile(`(\d+)\s*(?:unsafe)`),
		regexp.MustCompile(`(\d+)\s*(?:fund)`),
		regexp.MustCompile(`(\d+)\s*(?:safe|fast)`),
		regexp.MustCompile(`(\d+)\s*(?:slow)`),
		regexp.MustCompile(`(?:cp)\s*[:=]?\s*(\d+)`),
		regexp.MustCompile(`(?:need)\s+(\d+)`),
	}

	bareNumber = regexp.MustCompile(`\b(\d{3,7})\b`)

	emailToken = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+`)
)

// ExtractAmount pulls the order amount out of free text, or 0 when no
// plausible amount is present. Comma-grouped digits ("1,000") are accepted.
func ExtractAmount(text string) int {
	if text == "" {
		return 0
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = commaInNumber.ReplaceAllString(normalized, "$1$2")

	for _, p := range amountPatterns {
		if m := p.FindStringSubmatch(normalized); m != nil {
			amount, err := strconv.Atoi(m[1])
			if err == nil && amount >= minAmount && amount <= maxAmount {
				return amount
			}
		}
	}

	// Fallback: if exactly one in-range number appears anywhere, it is
	// almost certainly the amount.
	var candidates []int
	for _, m := range bareNumber.FindAllStringSubmatch(normalized, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= minAmount && n <= maxAmount {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return 0
}

// ExtractCategory detects the order category, or "" when none is
// recognizable. When several category keywords co-occur, priority is
// unsafe > fund > safe_slow > safe_fast.
func ExtractCategory(text string) string {
	if text == "" {
		return ""
	}
	t := strings.ToLower(text)

	containsAny := func(keywords ...string) bool {
		for _, k := range keywords {
			if strings.Contains(t, k) {
				return true
			}
		}
		return false
	}

	if containsAny("unsafe", "unsaf") {
		return CategoryUnsafe
	}
	if containsAny("fund", "95%", "safe 95", "safe95", "safe_95") {
		return CategoryFund
	}
	if containsAny("safe slow", "safe_slow") {
		return CategorySafeSlow
	}
	if containsAny("slow") && containsAny("safe") {
		return CategorySafeSlow
	}
	if containsAny("safe fast", "safe_fast") {
		return CategorySafeFast
	}
	if containsAny("fast") && containsAny("safe") {
		return CategorySafeFast
	}
	// Standalone "safe" defaults to the fast variant.
	if containsAny("safe") {
		return CategorySafeFast
	}
	return ""
}

// ExtractOrder resolves amount and category together. The diagnostic names
// exactly the missing fields and is empty when both were found.
func ExtractOrder(text string) (int, string, string) {
	if strings.TrimSpace(text) == "" {
		return 0, "", "order text is empty"
	}

	amount := ExtractAmount(text)
	category := ExtractCategory(text)

	var problems []string
	if amount == 0 {
		problems = append(problems, "amount is missing or not in the accepted range")
	}
	if category == "" {
		problems = append(problems, "order category not recognized; specify one of unsafe, fund, safe_fast, safe_slow")
	}

	return amount, category, strings.Join(problems, "\n")
}

// IsWellFormed reports whether the text is a proper order submission: at
// least 3 lines, a contact email, and a resolvable amount and category.
func IsWellFormed(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 3 {
		return false
	}

	if !emailToken.MatchString(text) {
		return false
	}

	amount, category, _ := ExtractOrder(text)
	return amount != 0 && category != ""
}

// TextParser adapts the package functions to the consumer-side parser
// interface of the order manager.
type TextParser struct{}

func (TextParser) ExtractOrder(text string) (int, string, string) {
	return ExtractOrder(text)
}

func (TextParser) IsWellFormed(text string) bool {
	return IsWellFormed(text)
}
