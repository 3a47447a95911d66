// Package tables rolls dice against range tables of critical hit and fumble
// effects.
package tables

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is a single table row.
type Entry struct {
	Range       Range
	Description string
	Effect      string
}

// Table maps results of its dice to entries.
type Table struct {
	ID   string
	Name string
	D    string

	dice    Dice
	entries []Entry
}

// Result is what a table roll produced. Description and Effect have inline
// rolls already resolved.
type Result struct {
	Table       string `json:"table"`
	D           string `json:"d"`
	Roll        int    `json:"roll"`
	Range       string `json:"range"`
	Description string `json:"description"`
	Effect      string `json:"effect"`
}

type tableJSON struct {
	Name   string               `json:"name"`
	D      string               `json:"d"`
	Ranges map[string][2]string `json:"ranges"`
}

// NewTable builds table out of its dice notation and ranges, where each
// range is mapped to a (description, effect) pair.
func NewTable(name, d string, ranges map[string][2]string) (*Table, error) {
	dice, err := ParseRoll(d)
	if err != nil {
		return nil, fmt.Errorf("table '%s': %w", name, err)
	}

	keys := make([]string, 0, len(ranges))
	for k := range ranges {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))

	t := &Table{
		ID:      slug.Make(name),
		Name:    name,
		D:       dice.Notation,
		dice:    dice,
		entries: make([]Entry, 0, len(keys)),
	}
	for _, k := range keys {
		r, err := ParseRange(k)
		if err != nil {
			return nil, fmt.Errorf("table '%s': %w", name, err)
		}
		t.entries = append(t.entries, Entry{Range: r, Description: ranges[k][0], Effect: ranges[k][1]})
	}
	return t, nil
}

// ParseTable decodes JSON table. When the document has no name, it is
// derived from key ("spellAttackFumble" becomes "Spell Attack Fumble").
func ParseTable(data []byte, key string) (*Table, error) {
	var tj tableJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("unable to decode table '%s': %w", key, err)
	}
	name := tj.Name
	if name == "" {
		name = DisplayName(key)
	}
	return NewTable(name, tj.D, tj.Ranges)
}

// Entries returns table rows ordered by range.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Dice returns parsed table dice.
func (t *Table) Dice() Dice {
	return t.dice
}

// Roll rolls table dice and looks the result up.
func (t *Table) Roll(rng Source) (Result, error) {
	return t.Lookup(t.dice.Roll(rng).Sum, rng)
}

// Lookup returns entry for roll result n with inline rolls of its texts
// resolved using rng. ErrIncompleteTable is returned when no range covers n.
func (t *Table) Lookup(n int, rng Source) (Result, error) {
	for _, e := range t.entries {
		if !e.Range.Includes(n) {
			continue
		}
		description, err := RollString(e.Description, rng)
		if err != nil {
			return Result{}, fmt.Errorf("table '%s' range %s: %w", t.Name, e.Range.Text, err)
		}
		effect, err := RollString(e.Effect, rng)
		if err != nil {
			return Result{}, fmt.Errorf("table '%s' range %s: %w", t.Name, e.Range.Text, err)
		}
		return Result{
			Table:       t.Name,
			D:           t.D,
			Roll:        n,
			Range:       e.Range.Text,
			Description: description,
			Effect:      effect,
		}, nil
	}
	return Result{}, fmt.Errorf("%w: %d", ErrIncompleteTable, n)
}

// Gaps returns possible dice results no range covers.
func (t *Table) Gaps() []int {
	var gaps []int
	for n := t.dice.Min(); n <= t.dice.Max(); n++ {
		covered := false
		for _, e := range t.entries {
			if e.Range.Includes(n) {
				covered = true
				break
			}
		}
		if !covered {
			gaps = append(gaps, n)
		}
	}
	return gaps
}

// DisplayName turns camel case key into title.
func DisplayName(key string) string {
	var sb strings.Builder
	prev := rune(0)
	for _, r := range key {
		if r == '_' || r == '-' {
			r = ' '
		}
		if unicode.IsUpper(r) && prev != 0 && prev != ' ' && !unicode.IsUpper(prev) {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
		prev = r
	}
	return cases.Title(language.English).String(strings.Join(strings.Fields(sb.String()), " "))
}
