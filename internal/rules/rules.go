// Package rules classifies unstructured log lines against ordered rule sets.
//
// A rule absorbs up to Budget matching lines per record. Rules can exempt
// lines that occur before the analysis window starts (startup noise) or at or
// after it ends (shutdown noise); exempt lines never consume the budget.
// The first rule whose pattern matches the start of a line decides its fate.
package rules

import (
	"fmt"
	"math"
	"regexp"
)

// Unlimited is the budget of a rule that absorbs any number of lines.
var Unlimited = math.Inf(1)

// Rule is one classification rule.
type Rule struct {
	Pattern           *regexp.Regexp
	Budget            float64
	ExemptBeforeStart bool
	ExemptAfterEnd    bool
}

// NewRule compiles pattern so that it only matches at the start of a line.
func NewRule(pattern string, budget float64, exemptBeforeStart, exemptAfterEnd bool) (Rule, error) {
	if budget < 0 || math.IsNaN(budget) {
		return Rule{}, fmt.Errorf("rule %q: invalid budget %v", pattern, budget)
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", pattern, err)
	}
	return Rule{
		Pattern:           re,
		Budget:            budget,
		ExemptBeforeStart: exemptBeforeStart,
		ExemptAfterEnd:    exemptAfterEnd,
	}, nil
}

// MustRule is NewRule for rule sets known at compile time.
func MustRule(pattern string, budget float64, exemptBeforeStart, exemptAfterEnd bool) Rule {
	r, err := NewRule(pattern, budget, exemptBeforeStart, exemptAfterEnd)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the pattern as written by the rule author.
func (r Rule) String() string {
	s := r.Pattern.String()
	// strip the anchor added by NewRule
	if len(s) >= 5 && s[:4] == "^(?:" && s[len(s)-1] == ')' {
		return s[4 : len(s)-1]
	}
	return s
}

// Checker evaluates lines of a single record against a rule set and a
// window [start, end). It is not safe for concurrent use; create one per
// record.
type Checker struct {
	rules []Rule
	start float64
	end   float64
	used  []int
}

// NewChecker creates a Checker with all budgets untouched.
func NewChecker(rules []Rule, start, end float64) *Checker {
	return &Checker{
		rules: rules,
		start: start,
		end:   end,
		used:  make([]int, len(rules)),
	}
}

// Matches reports whether the line at ts is absorbed by the rule set.
// A false result means the line must be surfaced.
func (c *Checker) Matches(ts float64, line string) bool {
	for i, rule := range c.rules {
		if !rule.Pattern.MatchString(line) {
			continue
		}
		if ts < c.start && rule.ExemptBeforeStart || ts >= c.end && rule.ExemptAfterEnd {
			return true
		}
		c.used[i]++
		return float64(c.used[i]) <= rule.Budget
	}
	return false
}

// Count returns how many budget-consuming matches rule i has seen.
func (c *Checker) Count(i int) int {
	return c.used[i]
}

// Unmatched returns the rules that did not match more often than their
// budget. For a must-have rule set with zero budgets these are the rules that
// never fired inside the window.
func (c *Checker) Unmatched() []Rule {
	var out []Rule
	for i, rule := range c.rules {
		if float64(c.used[i]) <= rule.Budget {
			out = append(out, rule)
		}
	}
	return out
}
