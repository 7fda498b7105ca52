package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

var (
	// ErrNoUpSection is returned when a migration file has no Up directive.
	ErrNoUpSection = errors.New("migration has no -- +migrate Up section")

	directivePattern = regexp.MustCompile(`(?i)^--\s*\+migrate\s+(up|down)\b`)

	// migrationLexer tokenizes PostgreSQL migration files. Whitespace and
	// comments are kept so statements are executed exactly as written.
	// Dollar-quoted bodies switch to their own state, which ends only at the
	// same tag that opened it.
	migrationLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "Directive", Pattern: `--[ \t]*\+migrate[ \t]+(?i:up|down)\b[^\r\n]*`},
			{Name: "Comment", Pattern: `--[^\r\n]*`},
			{Name: "BlockComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
			{Name: "DollarOpen", Pattern: `\$(\w*)\$`, Action: lexer.Push("Dollar")},
			{Name: "EscapeString", Pattern: `[Ee]'([^'\\]|\\.|'')*'`},
			{Name: "String", Pattern: `'([^']|'')*'`},
			{Name: "QuotedIdent", Pattern: `"([^"]|"")*"`},
			{Name: "Semicolon", Pattern: `;`},
			{Name: "Whitespace", Pattern: `\s+`},
			{Name: "Other", Pattern: `[^;'"$\s/Ee-]+|[Ee$/-]`},
		},
		"Dollar": {
			{Name: "DollarClose", Pattern: `\$\1\$`, Action: lexer.Pop()},
			{Name: "DollarText", Pattern: `[^$]+|\$`},
		},
	})

	fileParser = participle.MustBuild[File](
		participle.Lexer(migrationLexer),
	)

	bodyParser = participle.MustBuild[Body](
		participle.Lexer(migrationLexer),
	)
)

type (
	// File is a migration file: optional leading comments followed by Up and
	// Down sections.
	File struct {
		Leading  []string   `parser:"@(Comment | BlockComment | Whitespace)*"`
		Sections []*Section `parser:"@@*"`
	}

	// Section is everything between one directive and the next.
	Section struct {
		Directive string  `parser:"@Directive"`
		Parts     []*Part `parser:"@@*"`
	}

	// Body is a run of SQL without directives.
	Body struct {
		Parts []*Part `parser:"@@*"`
	}

	// Part is a single token inside a section. Trivia is whitespace and
	// comments, Code is anything else.
	Part struct {
		Semicolon bool   `parser:"  @Semicolon"`
		Trivia    string `parser:"| @(Comment | BlockComment | Whitespace)"`
		Code      string `parser:"| @(DollarOpen DollarText* DollarClose | EscapeString | String | QuotedIdent | Other)"`
	}

	// Migration holds the statements of a parsed migration file.
	Migration struct {
		Up      []string
		Down    []string
		HasDown bool
	}
)

// Parse reads a migration file and splits its Up and Down sections into
// individual statements.
//
// Sections are introduced by "-- +migrate Up" and "-- +migrate Down" comment
// directives. Statements end at semicolons outside of string literals, quoted
// identifiers, comments, and dollar-quoted bodies ($$ or $tag$).
//
// Example usage:
//
//	m, err := parser.Parse(strings.NewReader(`
//	-- +migrate Up
//	CREATE TABLE "plans" ("id" BIGSERIAL PRIMARY KEY);
//	CREATE INDEX "plans_id_index" ON "plans" ("id");
//
//	-- +migrate Down
//	DROP TABLE "plans";
//	`))
//	if err != nil {
//		return err
//	}
//
//	for _, stmt := range m.Up {
//		fmt.Println(stmt)
//	}
func Parse(r io.Reader) (*Migration, error) {
	file, err := fileParser.Parse("", r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse migration")
	}

	m := new(Migration)
	seen := make(map[string]bool)
	for _, section := range file.Sections {
		kind := strings.ToLower(directivePattern.FindStringSubmatch(section.Directive)[1])
		if seen[kind] {
			return nil, errors.Errorf("duplicate -- +migrate %s section", kind)
		}
		seen[kind] = true

		stmts := statements(section.Parts)
		if kind == "up" {
			m.Up = stmts
		} else {
			m.Down = stmts
			m.HasDown = true
		}
	}

	if !seen["up"] {
		return nil, ErrNoUpSection
	}

	return m, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(sql string) (*Migration, error) {
	return Parse(strings.NewReader(sql))
}

// SplitStatements splits a run of SQL into statements. Comment-only
// fragments are dropped.
//
//	stmts, _ := parser.SplitStatements(`SELECT ';'; SELECT 2`)
//	// []string{"SELECT ';'", "SELECT 2"}
func SplitStatements(sql string) ([]string, error) {
	body, err := bodyParser.ParseString("", sql)
	if err != nil {
		return nil, errors.Wrap(err, "failed to split statements")
	}
	return statements(body.Parts), nil
}

func statements(parts []*Part) []string {
	var (
		stmts []string
		buf   strings.Builder
		code  bool
	)

	flush := func() {
		if code {
			stmts = append(stmts, strings.TrimSpace(buf.String()))
		}
		buf.Reset()
		code = false
	}

	for _, p := range parts {
		switch {
		case p.Semicolon:
			flush()
		case p.Code != "":
			code = true
			buf.WriteString(p.Code)
		default:
			buf.WriteString(p.Trivia)
		}
	}
	flush()

	return stmts
}
