// Package theme provides the lipgloss style sets for the dbnav UI. Each
// theme is generated from a small color palette so the whole look can be
// swapped at runtime by name.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/dbnav/internal/catalog"
)

// Theme holds lipgloss.Style values for every UI element.
type Theme struct {
	Name string

	// Explorer tree
	ExplorerBorder   lipgloss.Style
	ExplorerTitle    lipgloss.Style
	ExplorerSelected lipgloss.Style
	ExplorerLoading  lipgloss.Style
	ExplorerError    lipgloss.Style
	ExplorerGroup    lipgloss.Style
	ExplorerAction   lipgloss.Style
	kindStyles       map[catalog.Kind]lipgloss.Style

	// Editor
	EditorBorder     lipgloss.Style
	EditorLineNumber lipgloss.Style

	// SQL token styles used by the editor highlighter.
	SQLKeyword  lipgloss.Style
	SQLType     lipgloss.Style
	SQLFunction lipgloss.Style
	SQLString   lipgloss.Style
	SQLNumber   lipgloss.Style
	SQLComment  lipgloss.Style
	SQLOperator lipgloss.Style

	// Results grid
	ResultsBorder      lipgloss.Style
	ResultsHeader      lipgloss.Style
	ResultsCell        lipgloss.Style
	ResultsCellAlt     lipgloss.Style
	ResultsSelectedRow lipgloss.Style
	ResultsNull        lipgloss.Style

	// Buffer tab bar
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	TabBar      lipgloss.Style

	// Status bar
	StatusBar        lipgloss.Style
	StatusBarKey     lipgloss.Style
	StatusBarValue   lipgloss.Style
	StatusBarError   lipgloss.Style
	StatusBarSuccess lipgloss.Style

	// Floating panels and forms
	FloatBorder      lipgloss.Style
	FloatTitle       lipgloss.Style
	FloatScrollbar   lipgloss.Style
	InputLabel       lipgloss.Style
	InputValue       lipgloss.Style
	InputPlaceholder lipgloss.Style
	InputEditing     lipgloss.Style
	ButtonIdle       lipgloss.Style
	ButtonActive     lipgloss.Style

	// General
	FocusedBorder   lipgloss.Style
	UnfocusedBorder lipgloss.Style
	ErrorText       lipgloss.Style
	SuccessText     lipgloss.Style
	WarningText     lipgloss.Style
	MutedText       lipgloss.Style
}

// Kind returns the style for a tree entity of the given kind, falling back
// to the plain cell style for kinds without a dedicated color.
func (t *Theme) Kind(k catalog.Kind) lipgloss.Style {
	if s, ok := t.kindStyles[k]; ok {
		return s
	}
	return t.ResultsCell
}

// palette is the minimal color set a theme is derived from.
type palette struct {
	name       string
	border     string
	accent     string
	text       string
	muted      string
	selBg      string
	selFg      string
	errColor   string
	okColor    string
	warnColor  string
	server     string
	database   string
	schema     string
	table      string
	view       string
	routine    string
	synonym    string
	detail     string
	statusBg   string
	statusFg   string
	tabBg      string
	inactiveBg string
}

func build(p palette) *Theme {
	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.border))
	accentBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.accent))
	selected := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(p.selFg)).
		Background(lipgloss.Color(p.selBg))

	routine := lipgloss.NewStyle().Foreground(lipgloss.Color(p.routine))
	detail := lipgloss.NewStyle().Foreground(lipgloss.Color(p.detail))

	return &Theme{
		Name: p.name,

		ExplorerBorder:   border,
		ExplorerTitle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)).PaddingLeft(1),
		ExplorerSelected: selected,
		ExplorerLoading:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.warnColor)),
		ExplorerError:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.errColor)),
		ExplorerGroup:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)),
		ExplorerAction:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(p.accent)),
		kindStyles: map[catalog.Kind]lipgloss.Style{
			catalog.KindServer:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.server)),
			catalog.KindDatabase:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.database)),
			catalog.KindSchema:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.schema)),
			catalog.KindTable:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.table)),
			catalog.KindView:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.view)),
			catalog.KindProcedure:  routine,
			catalog.KindFunction:   routine,
			catalog.KindSynonym:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(p.synonym)),
			catalog.KindColumn:     detail,
			catalog.KindIndex:      detail,
			catalog.KindConstraint: detail,
			catalog.KindParameter:  detail,
		},

		EditorBorder:     border,
		EditorLineNumber: lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)),

		SQLKeyword:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		SQLType:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.view)),
		SQLFunction: lipgloss.NewStyle().Foreground(lipgloss.Color(p.routine)),
		SQLString:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.okColor)),
		SQLNumber:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.warnColor)),
		SQLComment:  lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(p.muted)),
		SQLOperator: lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)),

		ResultsBorder:      border,
		ResultsHeader:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)).Background(lipgloss.Color(p.tabBg)),
		ResultsCell:        lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)),
		ResultsCellAlt:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)).Background(lipgloss.Color(p.inactiveBg)),
		ResultsSelectedRow: selected,
		ResultsNull:        lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(p.muted)),

		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.selFg)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(false).
			BorderForeground(lipgloss.Color(p.accent)).
			Padding(0, 1),
		TabInactive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.muted)).
			Background(lipgloss.Color(p.inactiveBg)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color(p.border)).
			Padding(0, 1),
		TabBar: lipgloss.NewStyle().Background(lipgloss.Color(p.tabBg)),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.statusFg)).
			Background(lipgloss.Color(p.statusBg)),
		StatusBarKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.accent)).
			Background(lipgloss.Color(p.statusBg)),
		StatusBarValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.muted)).
			Background(lipgloss.Color(p.statusBg)),
		StatusBarError: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.statusFg)).
			Background(lipgloss.Color(p.errColor)),
		StatusBarSuccess: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.statusFg)).
			Background(lipgloss.Color(p.okColor)),

		FloatBorder:      accentBorder.Padding(1, 2),
		FloatTitle:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		FloatScrollbar:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)),
		InputLabel:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.schema)),
		InputValue:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)),
		InputPlaceholder: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(p.muted)),
		InputEditing:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.selFg)).Background(lipgloss.Color(p.selBg)),
		ButtonIdle:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)).Background(lipgloss.Color(p.inactiveBg)).Padding(0, 2),
		ButtonActive:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.statusFg)).Background(lipgloss.Color(p.statusBg)).Padding(0, 2),

		FocusedBorder:   accentBorder,
		UnfocusedBorder: border,
		ErrorText:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.errColor)),
		SuccessText:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.okColor)),
		WarningText:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.warnColor)),
		MutedText:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)),
	}
}

// ---------------------------------------------------------------------------
// Registry and accessors
// ---------------------------------------------------------------------------

// Themes maps theme names to their definitions.
var Themes = map[string]*Theme{
	"default": build(palette{
		name:   "default",
		border: "#3C3C3C", accent: "#569CD6", text: "#D4D4D4", muted: "#808080",
		selBg: "#264F78", selFg: "#FFFFFF",
		errColor: "#F44747", okColor: "#6A9955", warnColor: "#CCA700",
		server: "#DCDCAA", database: "#DCDCAA", schema: "#9CDCFE",
		table: "#4EC9B0", view: "#C586C0", routine: "#DCDCAA", synonym: "#C586C0",
		detail: "#D4D4D4", statusBg: "#007ACC", statusFg: "#FFFFFF",
		tabBg: "#252526", inactiveBg: "#2D2D2D",
	}),
	"light": build(palette{
		name:   "light",
		border: "#D4D4D4", accent: "#0451A5", text: "#1E1E1E", muted: "#A0A0A0",
		selBg: "#0060C0", selFg: "#FFFFFF",
		errColor: "#E51400", okColor: "#16825D", warnColor: "#BF8803",
		server: "#795E26", database: "#795E26", schema: "#001080",
		table: "#267F99", view: "#AF00DB", routine: "#795E26", synonym: "#AF00DB",
		detail: "#1E1E1E", statusBg: "#0060C0", statusFg: "#FFFFFF",
		tabBg: "#F3F3F3", inactiveBg: "#ECECEC",
	}),
	"monokai": build(palette{
		name:   "monokai",
		border: "#49483E", accent: "#F92672", text: "#F8F8F2", muted: "#75715E",
		selBg: "#49483E", selFg: "#F8F8F2",
		errColor: "#F92672", okColor: "#A6E22E", warnColor: "#E6DB74",
		server: "#E6DB74", database: "#E6DB74", schema: "#66D9EF",
		table: "#A6E22E", view: "#AE81FF", routine: "#A6E22E", synonym: "#AE81FF",
		detail: "#F8F8F2", statusBg: "#75715E", statusFg: "#F8F8F2",
		tabBg: "#1E1F1C", inactiveBg: "#3E3D32",
	}),
}

// Current is the currently active theme.
var Current = Themes["default"]

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the theme identified by name, falling back to the default
// theme when the name is unknown.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}
