package tables

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidNotation = errors.New("invalid dice notation")
	ErrInvalidRange    = errors.New("invalid range")
	ErrIncompleteTable = errors.New("table is incomplete")
)

// Source supplies random numbers, *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// IntN returns a number in [0,n).
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// NewRand returns deterministic source for the seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Dice is a parsed dice notation: Count dice with Sides sides, every die
// multiplied by Multiplier, Modifier added to the sum.
type Dice struct {
	Notation   string
	Count      int
	Sides      int
	Multiplier int
	Modifier   int
}

// Roll is the outcome of rolling Dice.
type Roll struct {
	Sum        int
	Rolls      []int
	Sides      int
	Multiplier int
	Modifier   int
}

// Limits keep Roll and range checks over the dice bounded.
const (
	MaxDice       = 100
	MaxSides      = 1000
	MaxMultiplier = 100
)

var notation = regexp.MustCompile(`^(\d+)\s*d\s*(\d+)(?:\s*\*\s*(\d+))?(?:\s*([+-]\s*\d+))?$`)

// ParseRoll parses "NdS", "NdS*M", "NdS+K" and "NdS*M-K" notations,
// whitespace between parts is allowed.
func ParseRoll(s string) (Dice, error) {
	s = strings.TrimSpace(s)
	m := notation.FindStringSubmatch(s)
	if m == nil {
		return Dice{}, fmt.Errorf("'%s': %w", s, ErrInvalidNotation)
	}

	d := Dice{Notation: s, Multiplier: 1}
	var err error
	if d.Count, err = strconv.Atoi(m[1]); err != nil {
		return Dice{}, fmt.Errorf("'%s': %w", s, ErrInvalidNotation)
	}
	if d.Count > MaxDice {
		return Dice{}, fmt.Errorf("'%s': more than %d dice: %w", s, MaxDice, ErrInvalidNotation)
	}
	if d.Sides, err = strconv.Atoi(m[2]); err != nil || d.Sides == 0 {
		return Dice{}, fmt.Errorf("'%s': no sides: %w", s, ErrInvalidNotation)
	}
	if d.Sides > MaxSides {
		return Dice{}, fmt.Errorf("'%s': more than %d sides: %w", s, MaxSides, ErrInvalidNotation)
	}
	if m[3] != "" {
		if d.Multiplier, err = strconv.Atoi(m[3]); err != nil || d.Multiplier > MaxMultiplier {
			return Dice{}, fmt.Errorf("'%s': %w", s, ErrInvalidNotation)
		}
	}
	if m[4] != "" {
		if d.Modifier, err = strconv.Atoi(strings.ReplaceAll(m[4], " ", "")); err != nil {
			return Dice{}, fmt.Errorf("'%s': %w", s, ErrInvalidNotation)
		}
	}
	return d, nil
}

// Roll rolls the dice with rng, nil means shared global source.
func (d Dice) Roll(rng Source) Roll {
	if rng == nil {
		rng = globalSource{}
	}
	r := Roll{
		Sum:        d.Modifier,
		Rolls:      make([]int, d.Count),
		Sides:      d.Sides,
		Multiplier: d.Multiplier,
		Modifier:   d.Modifier,
	}
	for i := range d.Count {
		v := rng.IntN(d.Sides) + 1
		r.Rolls[i] = v
		r.Sum += v * d.Multiplier
	}
	return r
}

// Min returns smallest possible sum.
func (d Dice) Min() int {
	return d.Count*d.Multiplier + d.Modifier
}

// Max returns largest possible sum.
func (d Dice) Max() int {
	return d.Count*d.Sides*d.Multiplier + d.Modifier
}

func (d Dice) String() string {
	s := strconv.Itoa(d.Count) + "d" + strconv.Itoa(d.Sides)
	if d.Multiplier != 1 {
		s += "*" + strconv.Itoa(d.Multiplier)
	}
	switch {
	case d.Modifier > 0:
		s += "+" + strconv.Itoa(d.Modifier)
	case d.Modifier < 0:
		s += strconv.Itoa(d.Modifier)
	}
	return s
}

// Range is an inclusive range of roll results.
type Range struct {
	Low  int
	High int
	Text string
}

// ParseRange parses "low-high" or a single number.
func ParseRange(s string) (Range, error) {
	text := strings.TrimSpace(s)
	low, high, found := strings.Cut(text, "-")
	if !found {
		high = low
	}
	l, err := strconv.Atoi(strings.TrimSpace(low))
	if err != nil {
		return Range{}, fmt.Errorf("'%s': %w", s, ErrInvalidRange)
	}
	h, err := strconv.Atoi(strings.TrimSpace(high))
	if err != nil {
		return Range{}, fmt.Errorf("'%s': %w", s, ErrInvalidRange)
	}
	return Range{Low: l, High: h, Text: text}, nil
}

// Includes reports whether n falls into the range.
func (r Range) Includes(n int) bool {
	return n >= r.Low && n <= r.High
}

var inlineRoll = regexp.MustCompile(`@\{([^}]+)\}`)

// RollString replaces every "@{notation}" in s with "<sum> (<notation>)".
func RollString(s string, rng Source) (string, error) {
	var errs error
	out := inlineRoll.ReplaceAllStringFunc(s, func(m string) string {
		n := inlineRoll.FindStringSubmatch(m)[1]
		d, err := ParseRoll(n)
		if err != nil {
			errs = err
			return m
		}
		return strconv.Itoa(d.Roll(rng).Sum) + " (" + n + ")"
	})
	if errs != nil {
		return "", errs
	}
	return out, nil
}
