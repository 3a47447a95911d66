// Package classes builds class attribute values out of conditional lists of
// class names.
//
//	cls := classes.New("button", classes.Cond(active, "button--active"))
//	cls.And("wide").String() // "button button--active wide" when active
//
// Falsy items (nil, false, empty strings, empty lists) are ignored. Strings
// may hold several space separated names. When a name repeats, only its
// last occurrence is kept, so later overrides win position.
package classes

import (
	"fmt"
	"slices"
	"strings"
)

// List is an immutable class list. The zero value is an empty list.
type List struct {
	items []any
}

// New creates a list out of items. Accepted items are strings, bools
// (always ignored, which makes "cond && name" style expressions possible
// with Cond), other Lists, Funcs, fmt.Stringers and slices of any of those
// ([]string, []any, []List). Anything else is formatted with fmt.Sprint.
func New(items ...any) List {
	return List{items: slices.Clone(items)}
}

// And returns a new list with more items appended. The receiver is not
// modified.
func (l List) And(more ...any) List {
	items := make([]any, 0, len(l.items)+len(more))
	items = append(items, l.items...)
	items = append(items, more...)
	return List{items: items}
}

// Names returns deduplicated class names in final order.
func (l List) Names() []string {
	var all []string
	for _, item := range l.items {
		all = flatten(all, item)
	}
	// last occurrence wins: walk backwards keeping first seen, then reverse
	seen := make(map[string]bool, len(all))
	names := make([]string, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if seen[all[i]] {
			continue
		}
		seen[all[i]] = true
		names = append(names, all[i])
	}
	slices.Reverse(names)
	return names
}

// String returns space separated class names.
func (l List) String() string {
	return strings.Join(l.Names(), " ")
}

// IsEmpty reports whether list resolves to no class names.
func (l List) IsEmpty() bool {
	return len(l.Names()) == 0
}

// Func returns callable form of the list: calling it extends the list
// exactly like And does.
func (l List) Func() Func {
	return func(more ...any) List {
		return l.And(more...)
	}
}

// Func is a callable class list.
type Func func(more ...any) List

// String returns joined class names of the underlying list.
func (f Func) String() string {
	if f == nil {
		return ""
	}
	return f().String()
}

// Join is a shortcut for New(items...).String().
func Join(items ...any) string {
	return New(items...).String()
}

// Cond returns name when cond is true and empty string otherwise.
func Cond(cond bool, name string) string {
	if cond {
		return name
	}
	return ""
}

func flatten(dst []string, item any) []string {
	switch v := item.(type) {
	case nil, bool:
		return dst
	case string:
		return append(dst, strings.Fields(v)...)
	case List:
		for _, it := range v.items {
			dst = flatten(dst, it)
		}
		return dst
	case Func:
		if v == nil {
			return dst
		}
		return flatten(dst, v())
	case []string:
		for _, s := range v {
			dst = append(dst, strings.Fields(s)...)
		}
		return dst
	case []List:
		for _, it := range v {
			dst = flatten(dst, it)
		}
		return dst
	case []any:
		for _, it := range v {
			dst = flatten(dst, it)
		}
		return dst
	case fmt.Stringer:
		return append(dst, strings.Fields(v.String())...)
	default:
		return append(dst, strings.Fields(fmt.Sprint(v))...)
	}
}
