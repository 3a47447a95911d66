package tables

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"dicetable/fetch"
)

// dieFaces makes dice come up with given faces, in order, cycling.
type dieFaces struct {
	faces []int
	next  int
}

func (d *dieFaces) IntN(n int) int {
	v := d.faces[d.next%len(d.faces)]
	d.next++
	return (v - 1) % n
}

func TestParseRoll(t *testing.T) {
	tests := []struct {
		in      string
		want    Dice
		wantErr error
	}{
		{in: "1d20", want: Dice{Notation: "1d20", Count: 1, Sides: 20, Multiplier: 1}},
		{in: "2d6+3", want: Dice{Notation: "2d6+3", Count: 2, Sides: 6, Multiplier: 1, Modifier: 3}},
		{in: " 3 d 4 * 5 - 2 ", want: Dice{Notation: "3 d 4 * 5 - 2", Count: 3, Sides: 4, Multiplier: 5, Modifier: -2}},
		{in: "1d2*5", want: Dice{Notation: "1d2*5", Count: 1, Sides: 2, Multiplier: 5}},
		{in: "d6", wantErr: ErrInvalidNotation},
		{in: "1d0", wantErr: ErrInvalidNotation},
		{in: "2d6+", wantErr: ErrInvalidNotation},
		{in: "2x6", wantErr: ErrInvalidNotation},
		{in: "", wantErr: ErrInvalidNotation},
		{in: "100d1000*100", want: Dice{Notation: "100d1000*100", Count: 100, Sides: 1000, Multiplier: 100}},
		{in: "1d2000000000", wantErr: ErrInvalidNotation},
		{in: "1000000000d6", wantErr: ErrInvalidNotation},
		{in: "101d6", wantErr: ErrInvalidNotation},
		{in: "1d1001", wantErr: ErrInvalidNotation},
		{in: "1d6*101", wantErr: ErrInvalidNotation},
		{in: "1d99999999999999999999", wantErr: ErrInvalidNotation},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRoll(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseRoll() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("ParseRoll() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDice_Roll(t *testing.T) {
	d, err := ParseRoll("3d6*2-1")
	if err != nil {
		t.Fatal(err)
	}
	r := d.Roll(&dieFaces{faces: []int{1, 4, 6}})
	if !slices.Equal(r.Rolls, []int{1, 4, 6}) {
		t.Errorf("Rolls = %v", r.Rolls)
	}
	if r.Sum != (1+4+6)*2-1 {
		t.Errorf("Sum = %d", r.Sum)
	}
	if r.Sides != 6 || r.Multiplier != 2 || r.Modifier != -1 {
		t.Errorf("unexpected roll %+v", r)
	}
	if d.Min() != 5 || d.Max() != 35 {
		t.Errorf("Min/Max = %d/%d", d.Min(), d.Max())
	}
	if d.String() != "3d6*2-1" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestDice_RollBounds(t *testing.T) {
	d, _ := ParseRoll("4d8+2")
	rng := NewRand(7)
	for range 500 {
		r := d.Roll(rng)
		if r.Sum < d.Min() || r.Sum > d.Max() {
			t.Fatalf("sum %d out of [%d, %d]", r.Sum, d.Min(), d.Max())
		}
		for _, v := range r.Rolls {
			if v < 1 || v > 8 {
				t.Fatalf("die value %d out of range", v)
			}
		}
	}

	// deterministic with the same seed
	a, b := d.Roll(NewRand(42)), d.Roll(NewRand(42))
	if !slices.Equal(a.Rolls, b.Rolls) {
		t.Errorf("rolls differ for the same seed: %v vs %v", a.Rolls, b.Rolls)
	}

	// global source
	if r := d.Roll(nil); len(r.Rolls) != 4 {
		t.Errorf("unexpected roll %+v", r)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in        string
		low, high int
		wantErr   bool
	}{
		{"1-4", 1, 4, false},
		{"7", 7, 7, false},
		{" 10 - 12 ", 10, 12, false},
		{"x-2", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		r, err := ParseRange(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseRange(%q) error = %v", tt.in, err)
		}
		if err != nil {
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("unexpected error %v", err)
			}
			continue
		}
		if r.Low != tt.low || r.High != tt.high {
			t.Errorf("ParseRange(%q) = %+v", tt.in, r)
		}
		if !r.Includes(tt.low) || !r.Includes(tt.high) || r.Includes(tt.high+1) || r.Includes(tt.low-1) {
			t.Errorf("Includes is not inclusive for %+v", r)
		}
	}
}

func TestRollString(t *testing.T) {
	got, err := RollString("Deal @{1d4} and @{2d6+1} damage, then @{1d4} more.", &dieFaces{faces: []int{3}})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Deal 3 (1d4) and 7 (2d6+1) damage, then 3 (1d4) more." {
		t.Errorf("RollString() = %q", got)
	}

	if got, _ := RollString("no rolls here", nil); got != "no rolls here" {
		t.Errorf("RollString() = %q", got)
	}
	if _, err := RollString("bad @{banana}", nil); !errors.Is(err, ErrInvalidNotation) {
		t.Errorf("expected ErrInvalidNotation, got %v", err)
	}
}

func TestTable_Lookup(t *testing.T) {
	tbl, err := NewTable("Test Table", "1d10", map[string][2]string{
		"10":  {"Ten", "Top"},
		"1-2": {"Low", "Take @{1d4} damage"},
		"3-9": {"Mid", "Nothing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.ID != "test-table" {
		t.Errorf("ID = %q", tbl.ID)
	}

	var order []string
	for _, e := range tbl.Entries() {
		order = append(order, e.Range.Text)
	}
	if !slices.Equal(order, []string{"1-2", "3-9", "10"}) {
		t.Errorf("entries order = %v", order)
	}

	res, err := tbl.Lookup(2, &dieFaces{faces: []int{4}})
	if err != nil {
		t.Fatal(err)
	}
	want := Result{Table: "Test Table", D: "1d10", Roll: 2, Range: "1-2", Description: "Low", Effect: "Take 4 (1d4) damage"}
	if res != want {
		t.Errorf("Lookup() = %+v, want %+v", res, want)
	}

	if _, err := tbl.Lookup(11, nil); !errors.Is(err, ErrIncompleteTable) {
		t.Errorf("expected ErrIncompleteTable, got %v", err)
	}
	if gaps := tbl.Gaps(); len(gaps) != 0 {
		t.Errorf("Gaps() = %v", gaps)
	}
}

func TestTable_Roll(t *testing.T) {
	tbl, err := NewTable("T", "1d6", map[string][2]string{"1-3": {"a", "x"}, "4-5": {"b", "y"}})
	if err != nil {
		t.Fatal(err)
	}
	res, err := tbl.Roll(&dieFaces{faces: []int{5}})
	if err != nil || res.Description != "b" || res.Roll != 5 {
		t.Errorf("Roll() = %+v, %v", res, err)
	}
	if _, err := tbl.Roll(&dieFaces{faces: []int{6}}); !errors.Is(err, ErrIncompleteTable) {
		t.Errorf("expected ErrIncompleteTable, got %v", err)
	}
	if gaps := tbl.Gaps(); !slices.Equal(gaps, []int{6}) {
		t.Errorf("Gaps() = %v", gaps)
	}
}

func TestParseTable(t *testing.T) {
	tbl, err := ParseTable([]byte(`{"d":"1d4","ranges":{"1-4":["All","Same"]}}`), "spellAttackFumble")
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Name != "Spell Attack Fumble" || tbl.ID != "spell-attack-fumble" {
		t.Errorf("unexpected name %q / id %q", tbl.Name, tbl.ID)
	}

	if _, err := ParseTable([]byte(`{"d":"banana","ranges":{}}`), "x"); !errors.Is(err, ErrInvalidNotation) {
		t.Errorf("expected ErrInvalidNotation, got %v", err)
	}
	if _, err := ParseTable([]byte(`{"d":"1d4","ranges":{"a":["",""]}}`), "x"); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := ParseTable([]byte(`{`), "x"); err == nil {
		t.Error("expected decode error")
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"weaponAttackCriticalHit": "Weapon Attack Critical Hit",
		"spell_fumble":            "Spell Fumble",
		"HTMLTable":               "Htmltable",
		"plain":                   "Plain",
	}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadBundled(t *testing.T) {
	f, err := fetch.New("embed:///data/", zap.NewNop(), fetch.WithProtocol("embed", fetch.FSHandler(Data)))
	if err != nil {
		t.Fatal(err)
	}
	set, err := Load(context.Background(), f, DefaultNames, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !slices.Equal(set.Keys(), DefaultNames) {
		t.Errorf("Keys() = %v", set.Keys())
	}
	wantIDs := []string{"spell-attack-critical-hit", "spell-attack-fumble", "weapon-attack-critical-hit", "weapon-attack-fumble"}
	if !slices.Equal(set.IDs(), wantIDs) {
		t.Errorf("IDs() = %v", set.IDs())
	}

	leftover := regexp.MustCompile(`@\{`)
	rng := NewRand(1)
	for _, tbl := range set.Tables() {
		if gaps := tbl.Gaps(); len(gaps) > 0 {
			t.Errorf("table %q has gaps %v", tbl.Name, gaps)
		}
		// every possible result resolves
		for n := tbl.Dice().Min(); n <= tbl.Dice().Max(); n++ {
			res, err := tbl.Lookup(n, rng)
			if err != nil {
				t.Fatalf("%s: Lookup(%d) error = %v", tbl.Name, n, err)
			}
			if leftover.MatchString(res.Description + res.Effect) {
				t.Errorf("%s: unresolved inline roll in %+v", tbl.Name, res)
			}
		}
	}

	if tbl, ok := set.Get("weapon-attack-fumble"); !ok || tbl.Name != "Weapon Attack Fumble" {
		t.Errorf("Get by id failed: %v", tbl)
	}
	if _, ok := set.Get("spellAttackFumble"); !ok {
		t.Error("Get by key failed")
	}
}

func TestLoad_Errors(t *testing.T) {
	f, err := fetch.New("embed:///data/", nil, fetch.WithProtocol("embed", fetch.FSHandler(Data)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Load(context.Background(), f, []string{"weaponAttackFumble", "missingOne", "missingTwo"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"missingOne", "missingTwo"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestNewSet(t *testing.T) {
	a, _ := NewTable("B table", "1d2", map[string][2]string{"1-2": {"", ""}})
	b, _ := NewTable("A table", "1d2", map[string][2]string{"1-2": {"", ""}})
	s := NewSet(a, b, a)
	if s.Len() != 2 || s.Tables()[0] != a {
		t.Errorf("unexpected set %v", s.Keys())
	}
	if !slices.Equal(s.IDs(), []string{"a-table", "b-table"}) {
		t.Errorf("IDs() = %v", s.IDs())
	}
}
