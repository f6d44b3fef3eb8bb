// Package selector decides which scenarios run based on their capability
// tags and a selection expression supplied by the runner.
package selector

import (
	"fmt"
	"sort"
	"strings"
)

// Known capability tags. Scenarios may only declare tags from this set.
const (
	TagManual      = "manual"
	TagSlow        = "slow"
	TagIngress     = "ingress"
	TagNodePort    = "nodeport"
	TagEducational = "educational"
)

var knownTags = map[string]bool{
	TagManual:      true,
	TagSlow:        true,
	TagIngress:     true,
	TagNodePort:    true,
	TagEducational: true,
}

// TagSet is the set of capability tags attached to a scenario. It is fixed
// at scenario definition time and never mutated during a run.
type TagSet map[string]bool

// NewTagSet builds a TagSet from tag names. Unknown tags are rejected so a
// typo in a scenario definition fails loudly instead of silently never
// matching.
func NewTagSet(tags ...string) (TagSet, error) {
	ts := make(TagSet, len(tags))
	for _, tag := range tags {
		if !knownTags[tag] {
			return nil, fmt.Errorf("unknown tag %q", tag)
		}
		ts[tag] = true
	}
	return ts, nil
}

// MustTagSet is NewTagSet for statically declared scenarios, where an
// unknown tag is a programming error.
func MustTagSet(tags ...string) TagSet {
	ts, err := NewTagSet(tags...)
	if err != nil {
		panic(err)
	}
	return ts
}

// Has reports whether the set contains the given tag.
func (ts TagSet) Has(tag string) bool { return ts[tag] }

// Names returns the tags in sorted order, for display.
func (ts TagSet) Names() []string {
	names := make([]string, 0, len(ts))
	for tag := range ts {
		names = append(names, tag)
	}
	sort.Strings(names)
	return names
}

func (ts TagSet) String() string { return strings.Join(ts.Names(), ",") }

// ShouldRun evaluates the expression against the scenario's tags.
//
// Exclusion always wins: if the scenario carries any tag that the expression
// negates, it is skipped regardless of what the rest of the expression would
// say. This keeps manual/destructive scenarios out of automated sweeps even
// when another selection criterion matches them.
func ShouldRun(tags TagSet, expr *Expression) bool {
	if expr == nil || expr.root == nil {
		return true
	}
	for excluded := range expr.excluded {
		if tags.Has(excluded) {
			return false
		}
	}
	return expr.root.eval(tags)
}

// Default is the selection used when the runner supplies no expression:
// everything except manual scenarios.
func Default() *Expression {
	expr, err := Parse("not manual")
	if err != nil {
		panic(err) // static expression
	}
	return expr
}
