package validate

import (
	"regexp"
	"strings"
	"testing"
)

func TestValidateEmptyRuleListAlwaysPasses(t *testing.T) {
	for _, v := range []string{"", "anything", "   "} {
		if res := Validate(v, nil); !res.OK {
			t.Errorf("Validate(%q, nil) failed: %s", v, res.Message)
		}
	}
}

func TestValidatePrimitives(t *testing.T) {
	tests := []struct {
		name  string
		value string
		rule  Rule
		ok    bool
	}{
		{"required passes", "x", Required(), true},
		{"required rejects empty", "", Required(), false},
		{"required rejects whitespace", "   ", Required(), false},
		{"email passes", "dev@example.com", Email(), true},
		{"email rejects garbage", "not-an-email", Email(), false},
		{"url passes", "https://example.com/path", URL(), true},
		{"url rejects relative", "/just/a/path", URL(), false},
		{"number passes", "42.5", Number(), true},
		{"number rejects text", "abc", Number(), false},
		{"positive passes", "3", Positive(), true},
		{"positive rejects zero", "0", Positive(), false},
		{"positive rejects negative", "-1", Positive(), false},
		{"video url passes", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", VideoURL(), true},
		{"video url rejects other", "https://example.com/watch?v=nope", VideoURL(), false},
		{"min length passes", "hello", MinLength(3), true},
		{"min length rejects short", "hi", MinLength(3), false},
		{"max length passes", "hi", MaxLength(3), true},
		{"max length rejects long", "hello", MaxLength(3), false},
		{"pattern passes", "abc123", Pattern(regexp.MustCompile(`^[a-z0-9]+$`), ""), true},
		{"pattern rejects", "ABC", Pattern(regexp.MustCompile(`^[a-z0-9]+$`), ""), false},
		{"custom passes", "yes", Custom(func(s string) bool { return s == "yes" }, "must be yes"), true},
		{"custom rejects", "no", Custom(func(s string) bool { return s == "yes" }, "must be yes"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.value, []Rule{tt.rule})
			if res.OK != tt.ok {
				t.Errorf("Validate(%q) ok = %v, want %v (msg %q)", tt.value, res.OK, tt.ok, res.Message)
			}
			if !res.OK && res.Message == "" {
				t.Error("failure without a message")
			}
		})
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	// Both rules fail; the first one's message must be returned.
	rules := []Rule{
		MinLength(10),
		Pattern(regexp.MustCompile(`^\d+$`), "digits only"),
	}
	res := Validate("abc", rules)
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "at least 10") {
		t.Errorf("message = %q, want the min-length failure (rule order)", res.Message)
	}

	// Reversed order returns the other message.
	res = Validate("abc", []Rule{rules[1], rules[0]})
	if res.Message != "digits only" {
		t.Errorf("message = %q, want %q", res.Message, "digits only")
	}
}

func TestValidateShortCircuits(t *testing.T) {
	called := false
	rules := []Rule{
		Required(),
		Custom(func(string) bool { called = true; return true }, ""),
	}
	res := Validate("", rules)
	if res.OK {
		t.Fatal("expected required to fail")
	}
	if called {
		t.Error("rule after first failure was evaluated")
	}
}

func TestValidateCustomMessageOverride(t *testing.T) {
	r := Required()
	r.Message = "give me something"
	res := Validate("", []Rule{r})
	if res.Message != "give me something" {
		t.Errorf("message = %q, want override", res.Message)
	}
}
