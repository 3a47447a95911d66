package state

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"dicetable/config"
	"dicetable/css"
)

func TestEnvFromContext(t *testing.T) {
	t.Run("valid context", func(t *testing.T) {
		env := EnvFromContext(ContextWithEnv(context.Background()))
		if env == nil {
			t.Fatal("Expected non-nil environment")
		}
		if env.start.IsZero() {
			t.Error("Environment start time not set")
		}
	})

	t.Run("panic on missing env", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic when env not in context")
			}
		}()
		EnvFromContext(context.Background())
	})
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	time.Sleep(10 * time.Millisecond)
	if uptime := env.Uptime(); uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
}

func TestLocalEnv_StdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}
		for i := range 3 {
			env.RedirectStdLog()
			if env.restoreStdLog == nil {
				t.Errorf("Iteration %d: restoreStdLog not set", i)
			}
			env.RestoreStdLog()
		}
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestLocalEnv_Parser(t *testing.T) {
	env := &LocalEnv{}
	if _, ok := env.Parser().(*css.Parser); !ok {
		t.Errorf("expected default parser, got %T", env.Parser())
	}
	env.Cfg = &config.Config{Styling: config.StylingConfig{Parser: "douceur"}}
	if _, ok := env.Parser().(*css.DouceurParser); !ok {
		t.Errorf("expected douceur parser, got %T", env.Parser())
	}
}

func TestLocalEnv_LoadTables(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Tables.Seed = 11

	env := &LocalEnv{Cfg: cfg, Log: zaptest.NewLogger(t)}
	set, err := env.LoadTables(context.Background())
	if err != nil {
		t.Fatalf("LoadTables() error = %v", err)
	}
	if set.Len() != len(cfg.Tables.Names) {
		t.Errorf("loaded %d tables", set.Len())
	}
	if env.Rand == nil {
		t.Error("seeded random source expected")
	}
	again, err := env.LoadTables(context.Background())
	if err != nil || again != set {
		t.Error("tables must be loaded once")
	}
}

func TestLocalEnv_LoadTablesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `{"name":"Local","d":"1d2","ranges":{"1-2":["Any","Nothing"]}}`
	if err := os.WriteFile(filepath.Join(dir, "local.json"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	env := &LocalEnv{Cfg: &config.Config{Tables: config.TablesConfig{Base: dir, Names: []string{"local"}}}}
	set, err := env.LoadTables(context.Background())
	if err != nil {
		t.Fatalf("LoadTables() error = %v", err)
	}
	if tbl, ok := set.Get("local"); !ok || tbl.Name != "Local" {
		t.Errorf("unexpected table %v", tbl)
	}
	if env.Rand != nil {
		t.Error("zero seed must keep global random source")
	}

	if _, err := (&LocalEnv{}).LoadTables(context.Background()); err == nil {
		t.Error("expected error without configuration")
	}
}

func TestLocalEnv_LoadTablesFromPack(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tables.zip")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for _, key := range []string{"trapEffects", "lootRolls"} {
		fw, err := w.Create(key + ".json")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(`{"d":"1d2","ranges":{"1-2":["Any","Nothing"]}}`)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	t.Run("all tables", func(t *testing.T) {
		env := &LocalEnv{Cfg: &config.Config{Tables: config.TablesConfig{Base: name, Names: []string{AllTables}}}, Log: zaptest.NewLogger(t)}
		set, err := env.LoadTables(context.Background())
		if err != nil {
			t.Fatalf("LoadTables() error = %v", err)
		}
		if set.Len() != 2 {
			t.Fatalf("loaded %d tables", set.Len())
		}
		if tbl, ok := set.Get("trap-effects"); !ok || tbl.Name != "Trap Effects" {
			t.Errorf("unexpected table %v", tbl)
		}
	})

	t.Run("selected tables", func(t *testing.T) {
		env := &LocalEnv{Cfg: &config.Config{Tables: config.TablesConfig{Base: name, Names: []string{"lootRolls"}}}}
		set, err := env.LoadTables(context.Background())
		if err != nil {
			t.Fatalf("LoadTables() error = %v", err)
		}
		if set.Len() != 1 {
			t.Errorf("loaded %d tables", set.Len())
		}
	})

	t.Run("missing table", func(t *testing.T) {
		env := &LocalEnv{Cfg: &config.Config{Tables: config.TablesConfig{Base: name, Names: []string{"nothing"}}}}
		if _, err := env.LoadTables(context.Background()); err == nil {
			t.Error("expected error for table missing from pack")
		}
	})

	t.Run("all without pack", func(t *testing.T) {
		env := &LocalEnv{Cfg: &config.Config{Tables: config.TablesConfig{Base: t.TempDir(), Names: []string{AllTables}}}}
		if _, err := env.LoadTables(context.Background()); err == nil {
			t.Error("expected error")
		}
	})
}
