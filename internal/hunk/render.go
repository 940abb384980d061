package hunk

import "strings"

// RenderUnified renders hunks as a unified diff. "---"/"+++" file headers are emitted when fromName or toName is set. If color, ANSI colors mark headers, deletions,
// and additions. Hunks that are not Applied are rendered with a "(skipped)" marker after the header.
func RenderUnified(hunks []Hunk, color bool, fromName, toName string) string {
	// Colors (ANSI). Applied only if color==true.
	const (
		reset    = "\x1b[0m"
		red      = "\x1b[31m"
		green    = "\x1b[32m"
		magenta  = "\x1b[35m"
		cyanBold = "\x1b[1;36m"
		dim      = "\x1b[2m"
	)

	colorize := func(s, code string) string {
		if !color {
			return s
		}
		return code + s + reset
	}

	var out []string
	if fromName != "" || toName != "" {
		out = append(out, colorize("--- "+fromName, cyanBold))
		out = append(out, colorize("+++ "+toName, cyanBold))
	}

	for _, h := range hunks {
		header := colorize(h.Header, magenta)
		if !h.Applied {
			header += " " + colorize("(skipped)", dim)
		}
		out = append(out, header)
		for _, ln := range h.Lines {
			switch ln.Type {
			case LineAddition:
				out = append(out, colorize("+"+ln.Content, green))
			case LineDeletion:
				out = append(out, colorize("-"+ln.Content, red))
			default:
				out = append(out, " "+ln.Content)
			}
		}
	}

	return strings.Join(out, "\n")
}
