package scoped

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// EventTarget is something named events can be listened to on. The returned
// function removes the listener.
type EventTarget interface {
	AddEventListener(event string, fn func()) (remove func())
}

// TextSetter receives the generated :root block, normally a dedicated style
// element.
type TextSetter interface {
	SetText(text string)
}

// DefaultVarEvents is used when BindVars gets no events.
var DefaultVarEvents = []string{"resize"}

// VarBinding keeps CSS custom properties in sync with compute.
type VarBinding struct {
	style   TextSetter
	compute func() map[string]string
	remove  []func()
}

// BindVars writes result of compute into style as a single :root block
// immediately and again every time one of the events fires on target. There
// is no coalescing: every event recomputes and rewrites the whole block.
func BindVars(style TextSetter, compute func() map[string]string, events []string, target EventTarget) *VarBinding {
	if len(events) == 0 {
		events = DefaultVarEvents
	}
	b := &VarBinding{style: style, compute: compute}
	if target != nil {
		for _, ev := range events {
			b.remove = append(b.remove, target.AddEventListener(ev, b.Refresh))
		}
	}
	b.Refresh()
	return b
}

// Refresh recomputes variables synchronously.
func (b *VarBinding) Refresh() {
	b.style.SetText(RootBlock(b.compute()))
}

// Close stops listening for events. Last written block stays in place.
func (b *VarBinding) Close() {
	for _, fn := range b.remove {
		if fn != nil {
			fn()
		}
	}
	b.remove = nil
}

// RootBlock formats variables as ":root { --name: value; ... }" in natural
// name order.
func RootBlock(vars map[string]string) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))

	var sb strings.Builder
	sb.WriteString(":root {\n")
	for _, name := range names {
		sb.WriteString("  ")
		if !strings.HasPrefix(name, "--") {
			sb.WriteString("--")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(vars[name])
		sb.WriteString(";\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
