package parser

import (
	"regexp"
	"strings"

	"aspio/iospec"
)

// embeddedRe matches one annotation comment: the first % of a line (outside
// quoted strings) immediately followed by '!'. The annotation text runs to
// the end of the line or to a nested ordinary % comment.
var embeddedRe = regexp.MustCompile(`(?m)^(?:[^%"\n]|"(?:[^\\"\n]|\\.)*")*?%!([^%\n]*)`)

// ExtractEmbedded collects the contents of all %! comments of an ASP
// program, joined by newlines. Lines whose first % does not start a %!
// comment contribute nothing.
func ExtractEmbedded(program string) string {
	var parts []string
	for _, m := range embeddedRe.FindAllStringSubmatch(program, -1) {
		parts = append(parts, m[1])
	}
	return strings.Join(parts, "\n")
}

// ParseEmbedded extracts and parses the annotations embedded in an ASP
// program. Either result may be nil when the program carries no INPUT or no
// OUTPUT statement.
func ParseEmbedded(program string) (*iospec.InputSpec, *iospec.OutputSpec, error) {
	src := ExtractEmbedded(program)
	if strings.TrimSpace(src) == "" {
		return nil, nil, nil
	}
	return ParseSpec(src)
}
