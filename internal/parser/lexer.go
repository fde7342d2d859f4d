package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Token rules for the textual IR. Order matters: block labels carry their
// trailing colon so they win over plain identifiers, and floats are tried
// before integers.
var irLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Comment", Pattern: `;[^\n]*`},
		{Name: "Label", Pattern: `[A-Za-z$._][A-Za-z0-9$._]*:`},
		{Name: "LocalIdent", Pattern: `%[A-Za-z0-9$._]+`},
		{Name: "GlobalIdent", Pattern: `@[A-Za-z0-9$._]+`},
		{Name: "Float", Pattern: `-?\d+\.\d+([eE][-+]?\d+)?`},
		{Name: "Int", Pattern: `-?\d+`},
		{Name: "Ident", Pattern: `[A-Za-z$._][A-Za-z0-9$._]*`},
		{Name: "String", Pattern: `"[^"]*"`},
		{Name: "Punct", Pattern: `[=,(){}\[\]]`},
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	},
})
