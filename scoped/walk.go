package scoped

import (
	"iter"

	"dicetable/css"
)

// Walk returns depth-first sequence of rules and everything nested in them.
// Containers are yielded before their children, so their own fields (like
// keyframes names) are visited first. The sequence holds no state between
// iterations and may be ranged over any number of times.
func Walk(rules ...*css.Rule) iter.Seq[*css.Rule] {
	return func(yield func(*css.Rule) bool) {
		walk(rules, yield)
	}
}

func walk(rules []*css.Rule, yield func(*css.Rule) bool) bool {
	for _, r := range rules {
		if r == nil {
			continue
		}
		if !yield(r) {
			return false
		}
		if !walk(r.Rules, yield) {
			return false
		}
	}
	return true
}
