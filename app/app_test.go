package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"dicetable/css"
	"dicetable/tables"
)

// sameFace makes every die come up with face.
type sameFace int

func (f sameFace) IntN(n int) int { return (int(f) - 1) % n }

func testSet(t *testing.T) *tables.Set {
	t.Helper()
	crit, err := tables.NewTable("Weapon Crit", "1d4", map[string][2]string{
		"1-2": {"Solid strike", "Deal an extra @{1d4} damage."},
		"3-4": {"Devastating blow", "Maximize damage."},
	})
	if err != nil {
		t.Fatal(err)
	}
	fumble, err := tables.NewTable("Spell Fumble", "1d2", map[string][2]string{
		"1": {"Backfire", "Ouch."},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tables.NewSet(crit, fumble)
}

func newTestApp(t *testing.T, parser css.RuleParser) *App {
	t.Helper()
	a, err := New("Dice <Tables>", testSet(t), parser, sameFace(3), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func render(t *testing.T, a *App) *html.Node {
	t.Helper()
	var buf bytes.Buffer
	if err := a.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	n, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("unable to parse page: %v", err)
	}
	return n
}

func text(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		} else {
			sb.WriteString(text(c))
		}
	}
	return sb.String()
}

func TestPage_Initial(t *testing.T) {
	for _, parser := range []css.RuleParser{css.NewParser(nil), css.NewDouceurParser(nil)} {
		a := newTestApp(t, parser)
		root := render(t, a)

		sel := func(s string) cascadia.Selector { return cascadia.MustCompile(s) }

		if h1 := sel("h1").MatchFirst(root); h1 == nil || text(h1) != "Dice <Tables>" {
			t.Errorf("unexpected heading")
		}

		tableClass := a.Names().Class("table").String()
		buttons := sel("button." + tableClass).MatchAll(root)
		if len(buttons) != 2 {
			t.Fatalf("expected 2 table buttons, got %d", len(buttons))
		}
		if text(buttons[0]) != "Weapon Crit" {
			t.Errorf("first button = %q", text(buttons[0]))
		}

		hidden := a.Names().Class("hidden").String()
		if sel("#result." + hidden).MatchFirst(root) == nil {
			t.Error("result panel must be hidden before first roll")
		}

		styles := a.Styles()
		if strings.Contains(styles, ".table ") || strings.Contains(styles, ".table{") {
			t.Errorf("unscoped class left in styles:\n%s", styles)
		}
		pop, ok := a.Names().Animation("pop")
		if !ok || !strings.Contains(styles, "@keyframes "+pop) || !strings.Contains(styles, "animation: "+pop+" .3s ease-out") {
			t.Errorf("keyframes not consistently renamed (%q):\n%s", pop, styles)
		}

		vars := sel("head style:not([data-scoped])").MatchAll(root)
		if len(vars) != 1 || !strings.Contains(text(vars[0]), "--accent-hue: 210;") || !strings.Contains(text(vars[0]), `--roll-count: "0";`) {
			t.Errorf("unexpected variables block")
		}
	}
}

func TestApp_Roll(t *testing.T) {
	a := newTestApp(t, css.NewParser(nil))

	rolled := 0
	a.Events().AddEventListener(RollEvent, func() { rolled++ })

	res, err := a.Roll("weapon-crit")
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	want := tables.Result{Table: "Weapon Crit", D: "1d4", Roll: 3, Range: "3-4", Description: "Devastating blow", Effect: "Maximize damage."}
	if res != want {
		t.Errorf("Roll() = %+v, want %+v", res, want)
	}
	if rolled != 1 {
		t.Errorf("roll event dispatched %d times", rolled)
	}
	if last, ok := a.Last(); !ok || last != res {
		t.Errorf("Last() = %+v, %v", last, ok)
	}

	root := render(t, a)
	active := cascadia.MustCompile("button." + a.Names().Class("active").String()).MatchAll(root)
	if len(active) != 1 || text(active[0]) != "Weapon Crit" {
		t.Errorf("expected rolled table to be active, got %d active buttons", len(active))
	}
	panel := cascadia.MustCompile("#result").MatchFirst(root)
	if panel == nil {
		t.Fatal("result panel missing")
	}
	for _, c := range panel.Attr {
		if c.Key == "class" && strings.Contains(c.Val, a.Names().Class("hidden").String()) {
			t.Error("result panel still hidden")
		}
	}
	got := text(cascadia.MustCompile("." + a.Names().Class("roll").String()).MatchFirst(root))
	if got != "1d4: 3 (3-4)" {
		t.Errorf("roll line = %q", got)
	}
	vars := text(cascadia.MustCompile("head style:not([data-scoped])").MatchFirst(root))
	if !strings.Contains(vars, "--accent-hue: 111;") || !strings.Contains(vars, `--roll-count: "1";`) {
		t.Errorf("variables not recomputed: %q", vars)
	}

	if _, err := a.Roll("no-such-table"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
}

func TestApp_IncompleteTable(t *testing.T) {
	a, err := New("x", testSet(t), css.NewParser(nil), sameFace(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Roll("spell-fumble"); !errors.Is(err, tables.ErrIncompleteTable) {
		t.Errorf("expected ErrIncompleteTable, got %v", err)
	}
	if _, ok := a.Last(); ok {
		t.Error("failed roll must not change page")
	}
}

func TestHandler(t *testing.T) {
	a := newTestApp(t, css.NewParser(nil))
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Post(srv.URL+"/roll/weapon-crit", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Errorf("POST roll: status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	root, err := html.Parse(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	if d := cascadia.MustCompile("." + a.Names().Class("description").String()).MatchFirst(root); d == nil || text(d) != "Devastating blow" {
		t.Error("page does not show the roll")
	}

	resp, err = client.Get(srv.URL + "/api/roll/Spell%20Fumble")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown table: status %d", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/api/roll/weapon-crit")
	if err != nil {
		t.Fatal(err)
	}
	var res tables.Result
	err = json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if res.Table != "Weapon Crit" || res.Roll != 3 {
		t.Errorf("api result = %+v", res)
	}

	resp, err = client.Get(srv.URL + "/styles.css")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body) //nolint:errcheck
	resp.Body.Close()
	if !strings.Contains(buf.String(), "."+a.Names().Class("app").String()+" {") {
		t.Errorf("unexpected stylesheet %q", buf.String())
	}

	resp, err = client.Get(srv.URL + "/roll/weapon-crit")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET roll: status %d", resp.StatusCode)
	}
}
