package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"dicetable/app"
	"dicetable/config"
	"dicetable/css"
	"dicetable/scoped"
	"dicetable/state"
	"dicetable/tables"
)

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	return err
}

// createOutput opens named file or returns stdout for empty name.
func createOutput(fname string) (io.WriteCloser, error) {
	if len(fname) == 0 {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to create destination file '%s': %w", fname, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type scopeReport struct {
	Session   string            `yaml:"session"`
	Classes   map[string]string `yaml:"classes"`
	Keyframes map[string]string `yaml:"keyframes,omitempty"`
}

func runScope(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return errors.New("no source stylesheet has been specified")
	}
	if cmd.Args().Len() > 2 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	src, dst := cmd.Args().Get(0), cmd.Args().Get(1)

	var (
		data []byte
		err  error
	)
	if src == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}

	parser := env.Parser()
	switch cmd.String("parser") {
	case "":
	case "douceur":
		parser = css.NewDouceurParser(env.Log)
	case "tdewolff":
		parser = css.NewParser(env.Log)
	default:
		return fmt.Errorf("unknown CSS parser '%s'", cmd.String("parser"))
	}

	var opts []scoped.Option
	if id := cmd.String("session"); len(id) > 0 {
		opts = append(opts, scoped.WithSessionIDs(func() string { return id }))
	}

	registry := scoped.NewMemoryRegistry()
	engine, err := scoped.New(parser, registry, env.Log, opts...)
	if err != nil {
		return err
	}
	names, err := engine.Create(string(data))
	if err != nil {
		return fmt.Errorf("unable to scope '%s': %w", src, err)
	}

	out, err := createOutput(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.WriteString(out, registry.String()); err != nil {
		return fmt.Errorf("unable to write scoped stylesheet: %w", err)
	}

	mapping, err := yaml.Marshal(scopeReport{Session: names.Session, Classes: names.Map(), Keyframes: names.Animations()})
	if err != nil {
		return fmt.Errorf("unable to prepare name mapping: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.StoreData("scope/source.css", data)
		env.Rpt.StoreData("scope/names.yaml", mapping)
		for name, text := range map[string]string{"scope/source-rules.txt": string(data), "scope/scoped-rules.txt": registry.String()} {
			if rules, err := parser.ParseRules(text); err == nil {
				env.Rpt.StoreData(name, []byte(css.Dump(rules)))
			}
		}
	}
	if fname := cmd.String("names"); len(fname) > 0 {
		if err := os.WriteFile(fname, mapping, 0644); err != nil {
			return fmt.Errorf("unable to write name mapping: %w", err)
		}
		return nil
	}
	_, err = os.Stderr.Write(mapping)
	return err
}

func runRoll(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return errors.New("no table has been specified")
	}
	set, err := env.LoadTables(ctx)
	if err != nil {
		return err
	}
	key := cmd.Args().Get(0)
	t, ok := set.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s (known tables: %s)", app.ErrUnknownTable, key, strings.Join(set.IDs(), ", "))
	}

	field := env.Cfg.Roll.OutputTemplate
	if s := cmd.String("template"); len(s) > 0 {
		field = s
	}
	tmpl, err := template.New(string(config.OutputTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return fmt.Errorf("unable to parse output template: %w", err)
	}

	results := make([]tables.Result, 0, max(cmd.Int("times"), 1))
	for range cap(results) {
		res, err := t.Roll(env.Rand)
		if err != nil {
			return err
		}
		env.Log.Debug("Rolled", zap.String("table", res.Table), zap.Int("roll", res.Roll), zap.String("range", res.Range))
		results = append(results, res)
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, res := range results {
		buf := new(bytes.Buffer)
		if err := tmpl.Execute(buf, res); err != nil {
			return fmt.Errorf("unable to execute output template: %w", err)
		}
		fmt.Fprintln(os.Stdout, strings.TrimRight(buf.String(), "\n"))
	}
	return nil
}

func runTables(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	set, err := env.LoadTables(ctx)
	if err != nil {
		return err
	}
	for _, id := range set.IDs() {
		t, _ := set.Get(id)
		fmt.Fprintf(os.Stdout, "%-30s %-6s %s\n", t.ID, t.D, t.Name)
		if !cmd.Bool("entries") {
			continue
		}
		for _, e := range t.Entries() {
			fmt.Fprintf(os.Stdout, "    %-6s %s: %s\n", e.Range.Text, e.Description, e.Effect)
		}
	}
	return nil
}

func newPage(ctx context.Context) (*app.App, error) {
	env := state.EnvFromContext(ctx)

	set, err := env.LoadTables(ctx)
	if err != nil {
		return nil, err
	}
	return app.New(env.Cfg.Styling.Title, set, env.Parser(), env.Rand, env.Log)
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	page, err := newPage(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	for _, id := range cmd.StringSlice("roll") {
		if _, err := page.Roll(id); err != nil {
			return err
		}
	}

	buf := new(bytes.Buffer)
	if err := page.Render(buf); err != nil {
		return fmt.Errorf("unable to render page: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.StoreData("render/page.html", buf.Bytes())
	}

	out, err := createOutput(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = buf.WriteTo(out)
	return err
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	page, err := newPage(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	addr := env.Cfg.Server.Listen
	if s := cmd.String("listen"); len(s) > 0 {
		addr = s
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           page.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(env.Log.Named("http")),
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Shutdown(sctx)
	}()

	env.Log.Info("Serving dice tables", zap.String("address", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("unable to serve: %w", err)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("unable to shutdown server: %w", err)
	}
	env.Log.Info("Server stopped")
	return nil
}
