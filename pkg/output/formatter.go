package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ritzau/orgviz/pkg/model"
	"github.com/ritzau/orgviz/pkg/parser"
)

// PrintSummary prints a nicely formatted summary of a parsed outline with colors
func PrintSummary(w io.Writer, source string, org *model.Organization, diags []parser.Diagnostic) {
	// Color definitions
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintf(w, "%s\n", org.Title)
	fmt.Fprintf(w, "Source: %s\n", source)

	people := org.People()
	teams := org.Teams()
	fmt.Fprintf(w, "People: %d\n", len(people))
	fmt.Fprintf(w, "Connections: %d\n", len(org.Edges()))
	fmt.Fprintf(w, "Teams: %d\n", len(teams))

	for _, team := range teams {
		members := 0
		for _, p := range people {
			if p.Team == team {
				members++
			}
		}
		cyan.Fprintf(w, "  %s: %d\n", team, members)
	}
	fmt.Fprintln(w)

	if len(diags) == 0 {
		green.Fprintln(w, "✓ No warnings")
		return
	}

	yellow.Fprintf(w, "Warnings: %d\n", len(diags))
	for _, d := range diags {
		yellow.Fprintf(w, "  %s\n", d)
	}
}
