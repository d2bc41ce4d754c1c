package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reParenComment = regexp.MustCompile(`\([^)]*\)`)
	reField        = regexp.MustCompile(`([A-Z])([-+]?[0-9]*\.?[0-9]*)`)
	reNewline      = regexp.MustCompile(`\r?\n`)
)

// StripComments drops everything after ';' and the first parenthesised comment.
func StripComments(line string) string {
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	if loc := reParenComment.FindStringIndex(line); loc != nil {
		line = line[:loc[0]] + line[loc[1]:]
	}
	return line
}

// Fields holds the letter/number pairs of one line, indexed by letter.
type Fields [26]Axis

// Get returns the field for letter c ('A'..'Z').
func (f *Fields) Get(c byte) Axis {
	if c < 'A' || c > 'Z' {
		return Axis{}
	}
	return f[c-'A']
}

// ParseFields scans letter/number pairs left to right; the last occurrence of a
// letter wins. A letter with no digits reads as 0, a malformed number ("-", ".")
// leaves the letter unset.
func ParseFields(line string) Fields {
	var f Fields
	for _, m := range reField.FindAllStringSubmatch(StripComments(line), -1) {
		letter := m[1][0]
		num := m[2]
		if num == "" {
			f[letter-'A'] = Val(0)
			continue
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		f[letter-'A'] = Val(v)
	}
	return f
}

// ParseLine turns one line into a Move. Lines that are not a G1/G2/G3 with at
// least one of X, Y, Z come back as Passthrough with the text untouched.
func ParseLine(line string) Move {
	f := ParseFields(line)
	m := Move{Kind: Passthrough, Raw: line}

	g := f.Get('G')
	if !g.Set {
		return m
	}
	var cmd Command
	switch g.Value {
	case 1:
		cmd = Linear
	case 2:
		cmd = ArcCW
	case 3:
		cmd = ArcCCW
	default:
		return m
	}

	x, y, z := f.Get('X'), f.Get('Y'), f.Get('Z')
	if !x.Set && !y.Set && !z.Set {
		return m
	}

	m.Kind = Motion
	m.Command = cmd
	m.X, m.Y, m.Z = x, y, z
	m.E = f.Get('E').Or(0)
	m.F = f.Get('F')
	return m
}

// SplitLines splits text on LF or CRLF.
func SplitLines(text string) []string {
	return reNewline.Split(text, -1)
}

// Parse parses every line of text. Line numbers start at 1.
func Parse(text string) Program {
	lines := SplitLines(text)
	prog := make(Program, len(lines))
	for i, line := range lines {
		prog[i] = ParseLine(line)
		prog[i].Line = i + 1
	}
	return prog
}
