package testdash

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ethereum-optimism/infra/op-testdash/catalog"
	"github.com/ethereum-optimism/infra/op-testdash/types"
	"github.com/ethereum-optimism/infra/op-testdash/ui"
)

var categoryTitle = cases.Title(language.English)

func siteTitle(cat *catalog.Catalog) string {
	site, ok := cat.Site()
	if !ok {
		return "Tests"
	}
	return fmt.Sprintf("%s (%d tests)", site.Name, cat.Tally())
}

func writeTestTable(w io.Writer, cat *catalog.Catalog) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(siteTitle(cat))
	t.AppendHeader(table.Row{"Type", "Title", "Filename", "Hash", "State"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "Filename", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, typ := range cat.Types() {
		heading := categoryTitle.String(typ)
		for _, test := range cat.Tests(typ) {
			s := test.Summary()
			t.AppendRow(table.Row{heading, s.Title, s.Filename, s.Hash, stateString(s.State)})
		}
		t.AppendSeparator()
	}
	t.Render()
}

// formatTestTree renders each category as a branch with one leaf per path
// segment of the test filenames.
func formatTestTree(cat *catalog.Catalog) string {
	root := &ui.Node{Label: "tests"}
	for _, typ := range cat.Types() {
		branch := root.Child(categoryTitle.String(typ))
		for _, test := range cat.Tests(typ) {
			branch.AddPath(fmt.Sprintf("%s [%s]", test.Filename(), test.Hash()[:8]))
		}
	}

	var b strings.Builder
	b.WriteString(ui.BuildBoxHeader(siteTitle(cat), 60))
	b.WriteString(ui.RenderTree(root))
	return b.String()
}

func writeCheckTable(w io.Writer, checks ...types.CheckResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Environment")
	t.AppendHeader(table.Row{"Check", "Resource", "Config", "Status", "Error"})
	names := []string{"Logs", "Executable"}
	for i, check := range checks {
		name := fmt.Sprintf("Check %d", i+1)
		if i < len(names) {
			name = names[i]
		}
		resource := "-"
		if check.Resource != nil {
			resource = *check.Resource
		}
		status := text.FgGreen.Sprint("ready")
		if !check.Ready {
			status = text.FgRed.Sprint("not ready")
		}
		t.AppendRow(table.Row{name, resource, check.Config, status, check.Error})
	}
	t.Render()
}

func stateString(state types.TestState) string {
	switch state {
	case types.TestStatePassed:
		return text.FgGreen.Sprint(string(state))
	case types.TestStateFailed, types.TestStateError:
		return text.FgRed.Sprint(string(state))
	default:
		return string(state)
	}
}
