// Package app is the dice table page: a button per table, a panel with the
// last result and styles scoped to the page.
package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dicetable/classes"
	"dicetable/css"
	"dicetable/dom"
	"dicetable/scoped"
	"dicetable/tables"
)

// RollEvent is dispatched on the page after every roll.
const RollEvent = "roll"

var ErrUnknownTable = errors.New("unknown table")

// App keeps page state. All methods are safe for concurrent use.
type App struct {
	mu sync.Mutex

	set    *tables.Set
	rng    tables.Source
	doc    *dom.Document
	sheet  *dom.StyleSheet
	names  *scoped.Names
	events *dom.EventTarget
	vars   *scoped.VarBinding

	buttons map[string]*etree.Element
	panel   struct {
		root, name, roll, description, effect *etree.Element
	}

	rolls  int
	last   *tables.Result
	lastID string

	log *zap.Logger
}

// New builds the page. Styles are parsed with parser (through a transient
// style element of the page) and rng is used for all rolls, nil means
// global random source.
func New(title string, set *tables.Set, parser css.RuleParser, rng tables.Source, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("app")

	doc := dom.NewDocument(title, log)
	sheet := doc.StyleSheet()
	engine, err := scoped.New(dom.NewStyleParser(doc, parser, log), sheet, log)
	if err != nil {
		return nil, fmt.Errorf("unable to create style engine: %w", err)
	}
	names, err := engine.Create(pageStyles)
	if err != nil {
		return nil, fmt.Errorf("unable to scope page styles: %w", err)
	}

	a := &App{
		set:     set,
		rng:     rng,
		doc:     doc,
		sheet:   sheet,
		names:   names,
		events:  dom.NewEventTarget(),
		buttons: make(map[string]*etree.Element, set.Len()),
		log:     log,
	}
	a.build(title)
	a.vars = scoped.BindVars(doc.AppendStyle(), a.computeVars, []string{RollEvent}, a.events)

	log.Debug("Page created", zap.String("session", names.Session), zap.Int("tables", set.Len()), zap.Int("rules", sheet.Len()))
	return a, nil
}

// Names returns scoped class names of the page.
func (a *App) Names() *scoped.Names {
	return a.names
}

// Events returns page event target, RollEvent is dispatched on it.
func (a *App) Events() *dom.EventTarget {
	return a.events
}

// Roll rolls table with given key or slug ID and updates the page.
func (a *App) Roll(id string) (tables.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.set.Get(id)
	if !ok {
		return tables.Result{}, fmt.Errorf("%w: %s", ErrUnknownTable, id)
	}
	res, err := t.Roll(a.rng)
	if err != nil {
		return tables.Result{}, err
	}

	a.rolls++
	a.last, a.lastID = &res, t.ID
	a.update()
	a.events.Dispatch(RollEvent)

	a.log.Info("Rolled", zap.String("table", res.Table), zap.Int("roll", res.Roll), zap.String("range", res.Range))
	return res, nil
}

// Last returns result of the last roll.
func (a *App) Last() (tables.Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return tables.Result{}, false
	}
	return *a.last, true
}

// Render writes page HTML to w.
func (a *App) Render(w io.Writer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.doc.WriteTo(w)
	return err
}

// Styles returns content of the scoped stylesheet.
func (a *App) Styles() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sheet.Text()
}

// Close stops variables binding.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vars.Close()
}

func (a *App) computeVars() map[string]string {
	return pageVars(a.rolls, a.last)
}

func (a *App) class(names ...string) string {
	var l classes.List
	for _, n := range names {
		l = l.And(a.names.Class(n))
	}
	return l.String()
}

func (a *App) build(title string) {
	root := a.doc.Body.CreateElement("div")
	root.CreateAttr("class", a.class("app"))
	root.CreateElement("h1").SetText(title)

	list := root.CreateElement("div")
	list.CreateAttr("class", a.class("tables"))
	for _, t := range a.set.Tables() {
		form := list.CreateElement("form")
		form.CreateAttr("method", "post")
		form.CreateAttr("action", "roll/"+t.ID)

		btn := form.CreateElement("button")
		btn.CreateAttr("type", "submit")
		btn.CreateAttr("data-table", t.ID)
		btn.CreateAttr("title", t.D)
		btn.SetText(t.Name)
		a.buttons[t.ID] = btn
	}

	p := root.CreateElement("div")
	p.CreateAttr("id", "result")
	a.panel.root = p
	a.panel.name = p.CreateElement("div")
	a.panel.name.CreateAttr("class", a.class("name"))
	a.panel.roll = p.CreateElement("div")
	a.panel.roll.CreateAttr("class", a.class("roll"))
	a.panel.description = p.CreateElement("div")
	a.panel.description.CreateAttr("class", a.class("description"))
	a.panel.effect = p.CreateElement("div")
	a.panel.effect.CreateAttr("class", a.class("effect"))

	count := root.CreateElement("div")
	count.CreateAttr("class", a.class("count"))
	count.SetText("Rolls so far: ")

	a.update()
}

// update brings buttons and result panel in line with the last roll.
func (a *App) update() {
	for id, btn := range a.buttons {
		btn.CreateAttr("class", a.names.Class("table").And(
			classes.Cond(id == a.lastID, a.names.Class("active").String())).String())
	}

	if a.last == nil {
		a.panel.root.CreateAttr("class", a.class("result", "hidden"))
		return
	}
	a.panel.root.CreateAttr("class", a.class("result"))
	a.panel.name.SetText(a.last.Table)
	a.panel.roll.SetText(a.last.D + ": " + strconv.Itoa(a.last.Roll) + " (" + a.last.Range + ")")
	a.panel.description.SetText(a.last.Description)
	a.panel.effect.SetText(a.last.Effect)
}
