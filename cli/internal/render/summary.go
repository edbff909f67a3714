// Package render prints human readable reports of a manifest build.
package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/opencontainers/go-digest"

	"gradle2nix.dev/gradle2nix/bindings/go/model"
)

// Summary writes a table of the identifiers that could not be resolved in
// any repository, followed by the manifest fingerprint.
func Summary(w io.Writer, diagnostics []model.Diagnostic, fingerprint digest.Digest) error {
	if len(diagnostics) == 0 {
		if _, err := fmt.Fprintln(w, "All dependencies resolved."); err != nil {
			return err
		}
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Scope", "Project", "Unresolved"})
		total := 0
		for _, d := range diagnostics {
			for _, id := range d.Unresolved {
				t.AppendRow(table.Row{d.Scope.String(), d.Project, id.String()})
				total++
			}
		}
		t.AppendFooter(table.Row{"", "Total", total})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, AutoMerge: true},
			{Number: 2, AutoMerge: true},
		})
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
	}
	_, err := fmt.Fprintf(w, "Fingerprint: %s\n", fingerprint)
	return err
}
