package fortran

import (
	"regexp"
	"strings"

	"github.com/jward/embroider/internal/doctree"
)

// commentMarker introduces a comment anywhere on a free-format line.
const commentMarker = '!'

// typeSpec matches an intrinsic or derived result-type prefix such as
// "real(8)", "character*10" or "type(point)".
const typeSpec = `(?:integer|real|complex|logical|character|double\s*precision|double\s*complex)(?:\s*\*\s*\d+|\s*\([^)]*\))?` +
	`|(?:type|class)\s*\(\s*\w+\s*\)`

// procPrefix matches any sequence of procedure prefixes.
const procPrefix = `(?:(?:pure|impure|elemental|recursive|non_recursive|module|` + typeSpec + `)\s+)*`

// opener pairs a scope kind with the pattern that recognizes it. Patterns run
// against the code part of a line (comment removed) and capture the name in
// group 1. The table order is the only tie-breaker.
type opener struct {
	kind doctree.Kind
	re   *regexp.Regexp
}

var openers = []opener{
	// The name must end the statement, so "module procedure foo" and
	// "module function foo" are not module openers.
	{doctree.KindModule, regexp.MustCompile(`(?i)^\s*module\s+(\w+)\s*$`)},
	{doctree.KindSubroutine, regexp.MustCompile(`(?i)^\s*` + procPrefix + `subroutine\s+(\w+)`)},
	{doctree.KindFunction, regexp.MustCompile(`(?i)^\s*` + procPrefix + `function\s+(\w+)`)},
	{doctree.KindInterface, regexp.MustCompile(`(?i)^\s*(?:abstract\s+)?interface(?:\s+(\S.*?))?\s*$`)},
	// "type(name) :: x" declares a variable: the name must start with a
	// letter right after the optional attribute list.
	{doctree.KindStruct, regexp.MustCompile(`(?i)^\s*type\b(?:\s*,[^:]*)?\s*(?:::)?\s*([a-z]\w*)\s*$`)},
}

// The keyword may be followed only by a name (or a generic spec such as
// "operator(+)"), so "endtype = 1" stays an assignment.
var closer = regexp.MustCompile(`(?i)^\s*end\s*(module|subroutine|function|interface|type)\b(?:\s+[a-z]\w*(?:\s*\(.*\))?)?\s*$`)

var closerKinds = map[string]doctree.Kind{
	"module":     doctree.KindModule,
	"subroutine": doctree.KindSubroutine,
	"function":   doctree.KindFunction,
	"interface":  doctree.KindInterface,
	"type":       doctree.KindStruct,
}

var (
	argList    = regexp.MustCompile(`^\s*\(([^)]*)\)`)
	resultName = regexp.MustCompile(`(?i)\bresult\s*\(\s*(\w+)\s*\)`)
	identifier = regexp.MustCompile(`^[A-Za-z_]\w*`)
	typeStarts = regexp.MustCompile(`^[A-Za-z]`)
)

// declaration is a recognized scope opener.
type declaration struct {
	kind doctree.Kind
	name string
	// text is the trimmed source line.
	text string
	// args and result are set for procedures only.
	args   []string
	result string
	notes  string
}

// splitComment separates a line into its code part and the text of its
// trailing comment. Markers inside quoted strings are ignored.
func splitComment(line string) (code, comment string) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == commentMarker:
			return line[:i], line[i+1:]
		}
	}
	return line, ""
}

// cleanComment strips repeated markers, documentation arrows and
// surrounding whitespace from comment text.
func cleanComment(text string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(text), "!<>"))
}

// isComment reports whether line is a full-line comment.
func isComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && trimmed[0] == commentMarker
}

// classifyOpen recognizes a scope-opening line.
func classifyOpen(line string) (declaration, bool) {
	code, comment := splitComment(line)
	for _, o := range openers {
		m := o.re.FindStringSubmatchIndex(code)
		if m == nil {
			continue
		}
		d := declaration{kind: o.kind, text: strings.TrimSpace(line)}
		if m[2] >= 0 {
			d.name = strings.TrimSpace(code[m[2]:m[3]])
		}
		if o.kind == doctree.KindSubroutine || o.kind == doctree.KindFunction {
			rest := code[m[1]:]
			if am := argList.FindStringSubmatchIndex(rest); am != nil {
				d.args = splitArguments(rest[am[2]:am[3]])
				rest = rest[am[1]:]
			}
			if o.kind == doctree.KindFunction {
				d.result = d.name
				if rm := resultName.FindStringSubmatch(rest); rm != nil {
					d.result = rm[1]
				}
			}
			d.notes = cleanComment(comment)
		}
		return d, true
	}
	return declaration{}, false
}

// classifyClose recognizes a scope-closing line. A bare "end" is not a
// closer.
func classifyClose(line string) (doctree.Kind, bool) {
	code, _ := splitComment(line)
	m := closer.FindStringSubmatch(code)
	if m == nil {
		return 0, false
	}
	return closerKinds[strings.ToLower(m[1])], true
}

// classifyVariables recognizes a "<type-spec> :: <names>" declaration and
// returns one record per declared name.
func classifyVariables(line string) []*doctree.Variable {
	code, comment := splitComment(line)
	idx := indexUnquoted(code, "::")
	if idx < 0 {
		return nil
	}
	spec := strings.TrimSpace(code[:idx])
	if !typeStarts.MatchString(spec) {
		return nil
	}

	var (
		kept      []string
		parameter bool
		optional  bool
	)
	for i, part := range splitTopLevel(spec) {
		part = strings.TrimSpace(part)
		if i > 0 {
			switch strings.ToLower(part) {
			case "parameter":
				parameter = true
				continue
			case "optional":
				optional = true
				continue
			}
		}
		kept = append(kept, part)
	}
	typ := strings.Join(kept, ", ")
	desc := cleanComment(comment)

	var vars []*doctree.Variable
	for _, entry := range splitTopLevel(code[idx+2:]) {
		name, value := splitInitializer(entry)
		ident := identifier.FindString(strings.TrimSpace(name))
		if ident == "" {
			continue
		}
		v := &doctree.Variable{
			Name:        ident,
			Type:        typ,
			Description: desc,
			Parameter:   parameter,
			Optional:    optional,
		}
		if parameter {
			v.Value = value
		}
		vars = append(vars, v)
	}
	return vars
}

// indexUnquoted is strings.Index restricted to text outside quotes.
func indexUnquoted(s, sub string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case strings.HasPrefix(s[i:], sub):
			return i
		}
	}
	return -1
}

// splitArguments turns a dummy-argument list into bare names. Alternate
// return markers are dropped.
func splitArguments(list string) []string {
	var args []string
	for _, a := range strings.Split(list, ",") {
		a = strings.TrimSpace(a)
		if a == "" || a == "*" {
			continue
		}
		args = append(args, a)
	}
	return args
}

// splitInitializer splits "name = value" or "name => target" at the first
// top-level assignment.
func splitInitializer(entry string) (name, value string) {
	depth := 0
	var quote byte
	for i := 0; i < len(entry); i++ {
		c := entry[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == '=' && depth == 0:
			rest := entry[i+1:]
			rest = strings.TrimPrefix(rest, ">")
			return entry[:i], strings.TrimSpace(rest)
		}
	}
	return entry, ""
}

// splitTopLevel splits s on commas that are not nested in parentheses,
// brackets or quotes.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
