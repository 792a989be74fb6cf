package fortran

import "strings"

// logicalLine is one statement after continuation joining.
type logicalLine struct {
	text string
	// number is the 1-based source line the statement starts on.
	number int
}

// splitLines splits src into physical lines, dropping carriage returns.
func splitLines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// joinContinuations merges free-format continuation lines. A code line whose
// code part ends in '&' absorbs the next code line, minus an optional
// leading '&'. Comment lines between continued lines are dropped; the
// trailing comment of the last piece is kept.
func joinContinuations(lines []string) []logicalLine {
	out := make([]logicalLine, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		start := i + 1
		if isComment(line) {
			out = append(out, logicalLine{text: line, number: start})
			continue
		}
		code, comment := splitComment(line)
		if !continues(code) {
			out = append(out, logicalLine{text: line, number: start})
			continue
		}
		for continues(code) && i+1 < len(lines) {
			i++
			next := lines[i]
			if isComment(next) || strings.TrimSpace(next) == "" {
				continue
			}
			nextCode, nextComment := splitComment(next)
			nextCode = strings.TrimPrefix(strings.TrimLeft(nextCode, " \t"), "&")
			code = trimContinuation(code) + " " + strings.TrimLeft(nextCode, " \t")
			comment = nextComment
		}
		text := trimContinuation(code)
		if comment != "" {
			text += " " + string(commentMarker) + comment
		}
		out = append(out, logicalLine{text: text, number: start})
	}
	return out
}

func continues(code string) bool {
	return strings.HasSuffix(strings.TrimRight(code, " \t"), "&")
}

func trimContinuation(code string) string {
	return strings.TrimRight(strings.TrimSuffix(strings.TrimRight(code, " \t"), "&"), " \t")
}
