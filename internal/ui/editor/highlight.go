// Package editor provides the SQL editor component for dbnav.
package editor

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/dbnav/internal/theme"
)

// Highlighter tokenises SQL text using chroma and renders it with lipgloss
// styles from the active theme.
type Highlighter struct {
	lexer chroma.Lexer
}

// lexerNameFor maps a driver name to the chroma lexer closest to its
// dialect.
func lexerNameFor(dialect string) string {
	switch dialect {
	case "postgres", "duckdb":
		return "PostgreSQL"
	case "mysql":
		return "MySQL"
	case "sqlserver":
		return "Transact-SQL"
	default:
		return "SQL"
	}
}

// NewHighlighter creates a Highlighter for the given dialect, falling back
// to the generic SQL lexer when no dialect-specific one exists.
func NewHighlighter(dialect string) *Highlighter {
	l := lexers.Get(lexerNameFor(dialect))
	if l == nil {
		l = lexers.Get("SQL")
	}
	if l == nil {
		l = lexers.Fallback
	}
	// Coalesce runs of identical token types so the render loop processes
	// fewer, larger chunks.
	l = chroma.Coalesce(l)

	return &Highlighter{lexer: l}
}

// Highlight tokenises sql and returns a string where each token is styled
// with the corresponding theme style. Newlines are preserved so multi-line
// SQL renders correctly.
func (h *Highlighter) Highlight(sql string, th *theme.Theme) string {
	if th == nil {
		return sql
	}

	iter, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) * 2)

	for _, tok := range iter.Tokens() {
		value := tok.Value
		if value == "" {
			continue
		}

		style, ok := styleFor(tok.Type, th)
		if !ok {
			b.WriteString(value)
			continue
		}

		// Tokens that contain newlines are styled per segment so the
		// newline itself is always emitted as-is.
		if strings.Contains(value, "\n") {
			lines := strings.Split(value, "\n")
			for i, line := range lines {
				if line != "" {
					b.WriteString(style.Render(line))
				}
				if i < len(lines)-1 {
					b.WriteByte('\n')
				}
			}
		} else {
			b.WriteString(style.Render(value))
		}
	}

	return b.String()
}

// styleFor maps a chroma token type to a theme style. The second return
// value is false when the token passes through unstyled.
func styleFor(tt chroma.TokenType, th *theme.Theme) (lipgloss.Style, bool) {
	switch {
	// KeywordType is a subtype of Keyword, so check it first to give SQL
	// types (e.g. INT, VARCHAR) their own colour.
	case tt == chroma.KeywordType:
		return th.SQLType, true
	case tt == chroma.NameFunction:
		return th.SQLFunction, true
	case isKeyword(tt):
		return th.SQLKeyword, true
	case isString(tt):
		return th.SQLString, true
	case isNumber(tt):
		return th.SQLNumber, true
	case isComment(tt):
		return th.SQLComment, true
	case tt == chroma.Operator || tt == chroma.OperatorWord:
		return th.SQLOperator, true
	default:
		return lipgloss.Style{}, false
	}
}

func isKeyword(tt chroma.TokenType) bool {
	return tt == chroma.Keyword ||
		tt == chroma.KeywordConstant ||
		tt == chroma.KeywordDeclaration ||
		tt == chroma.KeywordNamespace ||
		tt == chroma.KeywordPseudo ||
		tt == chroma.KeywordReserved ||
		tt == chroma.KeywordType
}

func isString(tt chroma.TokenType) bool {
	return tt == chroma.LiteralString ||
		tt == chroma.LiteralStringAffix ||
		tt == chroma.LiteralStringBacktick ||
		tt == chroma.LiteralStringChar ||
		tt == chroma.LiteralStringDelimiter ||
		tt == chroma.LiteralStringDoc ||
		tt == chroma.LiteralStringDouble ||
		tt == chroma.LiteralStringEscape ||
		tt == chroma.LiteralStringHeredoc ||
		tt == chroma.LiteralStringInterpol ||
		tt == chroma.LiteralStringOther ||
		tt == chroma.LiteralStringRegex ||
		tt == chroma.LiteralStringSingle ||
		tt == chroma.LiteralStringSymbol
}

func isNumber(tt chroma.TokenType) bool {
	return tt == chroma.LiteralNumber ||
		tt == chroma.LiteralNumberBin ||
		tt == chroma.LiteralNumberFloat ||
		tt == chroma.LiteralNumberHex ||
		tt == chroma.LiteralNumberInteger ||
		tt == chroma.LiteralNumberIntegerLong ||
		tt == chroma.LiteralNumberOct
}

func isComment(tt chroma.TokenType) bool {
	return tt == chroma.Comment ||
		tt == chroma.CommentHashbang ||
		tt == chroma.CommentMultiline ||
		tt == chroma.CommentPreproc ||
		tt == chroma.CommentPreprocFile ||
		tt == chroma.CommentSingle ||
		tt == chroma.CommentSpecial
}
