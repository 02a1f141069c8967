// Package validate evaluates ordered rule lists against string values and
// reports the first failure. Rules are a closed set of kinds with optional
// parameters; a custom predicate escape hatch covers everything else.
package validate

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/onnwee/clipdeck/videourl"
)

// Kind identifies a validation rule.
type Kind int

const (
	KindRequired Kind = iota
	KindEmail
	KindURL
	KindNumber
	KindPositive
	KindVideoURL
	KindMinLength
	KindMaxLength
	KindPattern
	KindCustom
)

// Rule is one check in a pipeline. Only the fields relevant to its Kind are
// consulted. Message, when set, overrides the default failure message.
type Rule struct {
	Kind    Kind
	Length  int
	Pattern *regexp.Regexp
	Check   func(string) bool
	Message string
}

// Result reports the outcome of a validation run.
type Result struct {
	OK      bool
	Message string
}

// Convenience constructors keep call sites compact.

func Required() Rule          { return Rule{Kind: KindRequired} }
func Email() Rule             { return Rule{Kind: KindEmail} }
func URL() Rule               { return Rule{Kind: KindURL} }
func Number() Rule            { return Rule{Kind: KindNumber} }
func Positive() Rule          { return Rule{Kind: KindPositive} }
func VideoURL() Rule          { return Rule{Kind: KindVideoURL} }
func MinLength(n int) Rule    { return Rule{Kind: KindMinLength, Length: n} }
func MaxLength(n int) Rule    { return Rule{Kind: KindMaxLength, Length: n} }
func Pattern(re *regexp.Regexp, msg string) Rule {
	return Rule{Kind: KindPattern, Pattern: re, Message: msg}
}
func Custom(check func(string) bool, msg string) Rule {
	return Rule{Kind: KindCustom, Check: check, Message: msg}
}

// Validate runs rules in order against value and returns the first failure.
// An empty rule list always passes.
func Validate(value string, rules []Rule) Result {
	for _, r := range rules {
		if res := apply(value, r); !res.OK {
			return res
		}
	}
	return Result{OK: true}
}

func apply(value string, r Rule) Result {
	switch r.Kind {
	case KindRequired:
		if strings.TrimSpace(value) == "" {
			return fail(r, "value is required")
		}
	case KindEmail:
		if _, err := mail.ParseAddress(value); err != nil {
			return fail(r, "invalid email address")
		}
	case KindURL:
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fail(r, "invalid URL")
		}
	case KindNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fail(r, "must be a number")
		}
	case KindPositive:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || n <= 0 {
			return fail(r, "must be a positive number")
		}
	case KindVideoURL:
		if _, err := videourl.Parse(value); err != nil {
			return fail(r, "not a recognized video URL")
		}
	case KindMinLength:
		if len(value) < r.Length {
			return fail(r, fmt.Sprintf("must be at least %d characters", r.Length))
		}
	case KindMaxLength:
		if len(value) > r.Length {
			return fail(r, fmt.Sprintf("must be at most %d characters", r.Length))
		}
	case KindPattern:
		if r.Pattern == nil || !r.Pattern.MatchString(value) {
			return fail(r, "value does not match expected format")
		}
	case KindCustom:
		if r.Check == nil || !r.Check(value) {
			return fail(r, "value failed validation")
		}
	default:
		return Result{OK: false, Message: fmt.Sprintf("unknown rule kind %d", r.Kind)}
	}
	return Result{OK: true}
}

func fail(r Rule, def string) Result {
	msg := r.Message
	if msg == "" {
		msg = def
	}
	return Result{OK: false, Message: msg}
}
