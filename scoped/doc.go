/*
Package scoped implements locally scoped stylesheets.

Engine.Create takes CSS text, parses it with a pluggable css.RuleParser and
runs a Session over the rule tree. The session appends a random suffix to
every class name found in selectors and to every keyframes name, then fixes
references to keyframes in animation and animation-name declarations so the
whole block stays consistent. Rewritten rules are appended to a Registry
shared by all sessions, and the caller gets back Names: original class
names mapped to class lists (see package classes) of mangled ones.

	names, err := engine.Create(`
	  .result { animation: pop .3s ease-out; }
	  @keyframes pop { from { transform: scale(.8); } }
	`)
	...
	div.CreateAttr("class", names.Class("result").And(classes.Cond(active, "shown")).String())

Animation shorthand values are classified heuristically: numeric tokens,
functions and known keywords stay, any other token is assumed to name
keyframes and is mangled. An unknown keyword will therefore be mangled too.

BindVars complements the engine with a :root block of custom properties
recomputed on named events.
*/
package scoped
