package app

import (
	"strconv"

	"dicetable/tables"
)

// pageStyles is scoped once per page, every class and keyframes name gets
// the page session suffix.
const pageStyles = `
.app {
  font-family: system-ui, sans-serif;
  max-width: 40rem;
  margin: 0 auto;
  padding: 1rem;
}
.tables {
  display: flex;
  flex-wrap: wrap;
  gap: .5rem;
}
.tables form { margin: 0; }
.table {
  padding: .5rem 1rem;
  border: 1px solid hsl(var(--accent-hue), 40%, 50%);
  border-radius: 4px;
  background: white;
  cursor: pointer;
}
.table:hover, .table.active {
  background: hsl(var(--accent-hue), 60%, 88%);
}
.result {
  margin-top: 1rem;
  padding: 1rem;
  border-left: 4px solid hsl(var(--accent-hue), 60%, 45%);
  animation: pop .3s ease-out;
}
.result.hidden { display: none; }
.name { font-weight: bold; font-size: 1.2rem; }
.roll { color: #555; }
.description { margin-top: .5rem; }
.effect { font-style: italic; }
.count { margin-top: 1rem; color: #888; font-size: .8rem; }
.count::after { content: var(--roll-count); }
@keyframes pop {
  from { transform: scale(.95); opacity: 0; }
  to { transform: scale(1); opacity: 1; }
}
@media (max-width: 600px) {
  .tables { flex-direction: column; }
}
`

// pageVars computes CSS custom properties from the state of the last roll.
func pageVars(rolls int, last *tables.Result) map[string]string {
	hue := 210
	if last != nil {
		hue = (last.Roll * 37) % 360
	}
	return map[string]string{
		"accent-hue": strconv.Itoa(hue),
		"roll-count": strconv.Quote(strconv.Itoa(rolls)),
	}
}
