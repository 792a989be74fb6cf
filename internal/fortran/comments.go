package fortran

import "strings"

// commentAccumulator collects a run of consecutive full-line comments into a
// pending description. State is owned by one builder, so parses of different
// files never share it.
type commentAccumulator struct {
	buf  strings.Builder
	open bool
}

// feed consumes one line. A comment line is appended to the pending run and
// feed reports comment=true. Any other line finalizes the run: its text is
// returned as the description for that line and the buffer is cleared. The
// description is "" when no run was open.
func (c *commentAccumulator) feed(line string) (desc string, comment bool) {
	if isComment(line) {
		if !c.open {
			c.buf.Reset()
			c.open = true
		}
		c.buf.WriteString(cleanComment(line))
		c.buf.WriteByte('\n')
		return "", true
	}
	if !c.open {
		return "", false
	}
	desc = strings.TrimSuffix(c.buf.String(), "\n")
	c.buf.Reset()
	c.open = false
	return desc, false
}
