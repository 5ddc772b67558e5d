package filter

import (
	"slices"
	"strings"

	"github.com/ritzau/orgviz/pkg/model"
)

// AttributeMatch requires the rendered value of Key to contain Substring.
type AttributeMatch struct {
	Key       string
	Substring string
}

// Criteria selects which people are rendered. An empty axis does not
// constrain anything; all axes must hold for a person to be included.
type Criteria struct {
	AttributeMatches []AttributeMatch
	Teams            []string
	Influences       []string
}

// Filter decides per person whether it is excluded from rendering.
// A Filter is immutable and safe for concurrent use.
type Filter struct {
	attributeMatches []AttributeMatch
	teams            []string
	influences       []string
}

// New creates a filter from criteria. The criteria slices are copied and
// influence names are resolved the same way as in the outline, so
// "Supporter" and "support" both select supporters.
func New(c Criteria) *Filter {
	influences := make([]string, 0, len(c.Influences))
	for _, name := range c.Influences {
		influence, _ := model.ParseInfluence(name)
		influences = append(influences, string(influence))
	}

	return &Filter{
		attributeMatches: slices.Clone(c.AttributeMatches),
		teams:            slices.Clone(c.Teams),
		influences:       influences,
	}
}

// IsExcluded reports whether person should be left out of the graph.
// A nil filter excludes nobody.
func (f *Filter) IsExcluded(person *model.Person) bool {
	if f == nil {
		return false
	}

	for _, m := range f.attributeMatches {
		if !strings.Contains(person.Attribute(m.Key), m.Substring) {
			return true
		}
	}

	if len(f.teams) > 0 && !slices.Contains(f.teams, person.Team) {
		return true
	}

	if len(f.influences) > 0 && !slices.Contains(f.influences, string(person.Influence)) {
		return true
	}

	return false
}

// ParseAttributeMatches parses "key=substring" expressions. Expressions
// without "=" are returned in invalid and otherwise ignored.
func ParseAttributeMatches(exprs []string) (matches []AttributeMatch, invalid []string) {
	for _, expr := range exprs {
		key, value, ok := strings.Cut(expr, "=")
		if !ok {
			invalid = append(invalid, expr)
			continue
		}
		matches = append(matches, AttributeMatch{
			Key:       strings.TrimSpace(key),
			Substring: strings.TrimSpace(value),
		})
	}
	return matches, invalid
}
