package tables

import (
	"context"
	"embed"
	"fmt"
	"slices"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dicetable/fetch"
)

// Data holds bundled tables, served under "embed:" protocol.
//
//go:embed data/*.json
var Data embed.FS

// DefaultNames lists bundled tables in display order.
var DefaultNames = []string{
	"weaponAttackCriticalHit",
	"weaponAttackFumble",
	"spellAttackCriticalHit",
	"spellAttackFumble",
}

// Getter is what Load needs to get table documents.
type Getter interface {
	Get(ctx context.Context, uri string) (*fetch.Response, error)
}

// Set is an ordered collection of loaded tables.
type Set struct {
	keys   []string
	tables map[string]*Table
	byID   map[string]*Table
}

// Load fetches "<name>.json" for every name concurrently (relative to
// fetcher base) and parses them. All failures are reported together, the
// set is returned only when every table loaded.
func Load(ctx context.Context, f Getter, names []string, log *zap.Logger) (*Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tables")

	loaded := make([]*Table, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			resp, err := f.Get(gctx, name+".json")
			if err != nil {
				errs[i] = fmt.Errorf("unable to load table '%s': %w", name, err)
				return nil
			}
			t, err := ParseTable(resp.Bytes(), name)
			if err != nil {
				errs[i] = err
				return nil
			}
			if gaps := t.Gaps(); len(gaps) > 0 {
				log.Warn("Table does not cover all results", zap.String("table", t.Name), zap.Ints("missing", gaps))
			}
			loaded[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}

	s := &Set{
		tables: make(map[string]*Table, len(names)),
		byID:   make(map[string]*Table, len(names)),
	}
	for i, name := range names {
		if _, ok := s.tables[name]; ok {
			continue
		}
		s.keys = append(s.keys, name)
		s.tables[name] = loaded[i]
		s.byID[loaded[i].ID] = loaded[i]
	}
	log.Debug("Tables loaded", zap.Strings("tables", s.keys))
	return s, nil
}

// NewSet creates set out of already built tables keyed by their IDs.
func NewSet(tables ...*Table) *Set {
	s := &Set{
		tables: make(map[string]*Table, len(tables)),
		byID:   make(map[string]*Table, len(tables)),
	}
	for _, t := range tables {
		if _, ok := s.tables[t.ID]; ok {
			continue
		}
		s.keys = append(s.keys, t.ID)
		s.tables[t.ID] = t
		s.byID[t.ID] = t
	}
	return s
}

// Tables returns tables in load order.
func (s *Set) Tables() []*Table {
	out := make([]*Table, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.tables[k])
	}
	return out
}

// Keys returns table keys in load order.
func (s *Set) Keys() []string {
	return slices.Clone(s.keys)
}

// IDs returns slug IDs in natural order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Sort(natural.StringSlice(ids))
	return ids
}

// Get finds table by key or by slug ID.
func (s *Set) Get(keyOrID string) (*Table, bool) {
	if t, ok := s.tables[keyOrID]; ok {
		return t, true
	}
	t, ok := s.byID[keyOrID]
	return t, ok
}

// Len returns number of tables.
func (s *Set) Len() int {
	return len(s.keys)
}
