package rules

import (
	"fmt"
	"strings"

	"sentinel_go/internal/domain"
)

// Comparison operators accepted in rule files.
const (
	OpGT  = ">"
	OpLT  = "<"
	OpGTE = ">="
	OpLTE = "<="
)

// Predicate is one node of a parsed condition tree. Eval must be pure: no
// I/O, no mutation, safe for concurrent evaluation passes.
type Predicate interface {
	Eval(vec *domain.FeatureVector) bool
	String() string
}

// Comparison is a leaf predicate: one feature field against a numeric
// threshold. A field without data never satisfies any operator, so rules
// referencing a not-yet-computable field fail closed.
type Comparison struct {
	Feature   string
	Op        string
	Threshold float64
}

func (c *Comparison) Eval(vec *domain.FeatureVector) bool {
	f := vec.Get(c.Feature)
	if !f.OK {
		return false
	}
	switch c.Op {
	case OpGT:
		return f.Value > c.Threshold
	case OpLT:
		return f.Value < c.Threshold
	case OpGTE:
		return f.Value >= c.Threshold
	case OpLTE:
		return f.Value <= c.Threshold
	}
	return false
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %g", c.Feature, c.Op, c.Threshold)
}

// All holds when every child predicate holds (conjunction).
type All struct {
	Children []Predicate
}

func (a *All) Eval(vec *domain.FeatureVector) bool {
	for _, child := range a.Children {
		if !child.Eval(vec) {
			return false
		}
	}
	return true
}

func (a *All) String() string {
	return joinChildren(a.Children, " && ")
}

// AtLeast holds when at least K child predicates hold (quorum rule).
// Children that cannot be evaluated count as not holding.
type AtLeast struct {
	K        int
	Children []Predicate
}

func (q *AtLeast) Eval(vec *domain.FeatureVector) bool {
	hits := 0
	for _, child := range q.Children {
		if child.Eval(vec) {
			hits++
			if hits >= q.K {
				return true
			}
		}
	}
	return false
}

func (q *AtLeast) String() string {
	return fmt.Sprintf("%d of [%s]", q.K, joinChildren(q.Children, ", "))
}

func joinChildren(children []Predicate, sep string) string {
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = child.String()
	}
	return strings.Join(parts, sep)
}
