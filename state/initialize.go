package state

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"dicetable/archive"
	"dicetable/css"
	"dicetable/fetch"
	"dicetable/tables"
)

func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

// Parser returns CSS parser selected by configuration.
func (e *LocalEnv) Parser() css.RuleParser {
	if e.Cfg != nil && e.Cfg.Styling.Parser == "douceur" {
		return css.NewDouceurParser(e.Log)
	}
	return css.NewParser(e.Log)
}

// AllTables in the list of table names selects every table of a pack.
const AllTables = "*"

// LoadTables prepares fetcher and random source and loads configured tables.
// Bundled tables are always reachable with "embed:" protocol. Base pointing
// to a zip archive makes tables of that pack reachable with "pack:" protocol.
// Repeated calls return already loaded tables.
func (e *LocalEnv) LoadTables(ctx context.Context) (*tables.Set, error) {
	if e.Tables != nil {
		return e.Tables, nil
	}
	if e.Cfg == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}

	base, names := e.Cfg.Tables.Base, e.Cfg.Tables.Names
	opts := []fetch.Option{fetch.WithProtocol("embed", fetch.FSHandler(tables.Data))}

	if strings.EqualFold(filepath.Ext(base), ".zip") {
		pack, err := archive.Open(base)
		if err != nil {
			return nil, err
		}
		// tables are fetched only while loading
		defer pack.Close()

		available := pack.Tables("")
		if len(names) == 1 && names[0] == AllTables {
			names = available
		}
		if e.Log != nil {
			e.Log.Debug("Table pack opened", zap.String("pack", pack.Name()), zap.Strings("tables", available))
		}
		base = "pack:///"
		opts = append(opts, fetch.WithProtocol("pack", fetch.FSHandler(pack)))
	}
	if len(names) == 0 || (len(names) == 1 && names[0] == AllTables) {
		return nil, fmt.Errorf("no tables to load from '%s'", e.Cfg.Tables.Base)
	}

	var err error
	if e.Fetcher == nil {
		if e.Fetcher, err = fetch.New(base, e.Log, opts...); err != nil {
			return nil, fmt.Errorf("unable to prepare fetcher: %w", err)
		}
	}
	if e.Rand == nil && e.Cfg.Tables.Seed != 0 {
		e.Rand = tables.NewRand(e.Cfg.Tables.Seed)
	}

	if e.Tables, err = tables.Load(ctx, e.Fetcher, names, e.Log); err != nil {
		return nil, err
	}
	if e.Log != nil {
		e.Log.Debug("Tables ready", zap.Stringer("base", e.Fetcher.Base()), zap.Int("count", e.Tables.Len()))
	}
	return e.Tables, nil
}
