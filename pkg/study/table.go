package study

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/sspace/internal/store"
	"github.com/leapstack-labs/sspace/pkg/space"
)

// RenderTrials writes trials as a table with one column per dotted
// parameter path. Parameters a trial does not have are left blank.
func RenderTrials(w io.Writer, trials []*store.Trial) {
	if len(trials) == 0 {
		_, _ = fmt.Fprintln(w, "(0 trials)")
		return
	}

	flat := make([]map[string]any, len(trials))
	columns := map[string]bool{}
	for i, tr := range trials {
		flat[i] = flatten(tr.Params)
		for k := range flat[i] {
			columns[k] = true
		}
	}
	names := slices.Sorted(maps.Keys(columns))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"id", "seed", "index"}
	for _, name := range names {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i, tr := range trials {
		row := table.Row{tr.ID, tr.Seed, tr.Index}
		for _, name := range names {
			if v, ok := flat[i][name]; ok {
				row = append(row, space.FormatValue(v))
			} else {
				row = append(row, "")
			}
		}
		t.AppendRow(row)
	}
	t.Render()
}

func flatten(nested map[string]any) map[string]any {
	out := map[string]any{}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := space.JoinPath(prefix, k)
			if sub, ok := v.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			out[key] = v
		}
	}
	walk("", nested)
	return out
}
