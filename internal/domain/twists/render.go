package twists

import (
	"strings"

	m "twister.dev/pkg/twister/internal/model"
)

// RenderLine rewrites one source line so it shows point twisted. The
// column of the point must address the literal token or the if/for keyword
// on line. It returns false when the line cannot be rewritten.
func RenderLine(point m.Point, line string) (string, bool) {
	start := point.Location.Column - 1
	if start < 0 || start >= len(line) {
		return "", false
	}

	switch point.Kind {
	case m.KindLiteral:
		return renderLiteral(point, line, start)
	case m.KindConditional:
		return renderConditional(line, start)
	default:
		return "", false
	}
}

func renderLiteral(point m.Point, line string, start int) (string, bool) {
	end := literalEnd(line, start)
	if end <= start {
		return "", false
	}

	twisted, ok := Literal(point.Original)
	if !ok {
		return "", false
	}

	return line[:start] + FormatValue(twisted) + line[end:], true
}

// literalEnd returns the byte offset just past the literal starting at start.
func literalEnd(line string, start int) int {
	switch quote := line[start]; quote {
	case '"', '\'', '`':
		for i := start + 1; i < len(line); i++ {
			if line[i] == '\\' && quote != '`' {
				i++
				continue
			}

			if line[i] == quote {
				return i + 1
			}
		}

		return -1
	}

	i := start
	for i < len(line) {
		c := line[i]

		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '.', c == '_':
			i++
		case (c == '+' || c == '-') && i > start && strings.ContainsRune("eEpP", rune(line[i-1])):
			i++
		default:
			return i
		}
	}

	return i
}

func renderConditional(line string, start int) (string, bool) {
	rest := line[start:]

	var keyword string

	switch {
	case strings.HasPrefix(rest, "if "):
		keyword = "if "
	case strings.HasPrefix(rest, "for "):
		keyword = "for "
	default:
		return "", false
	}

	brace := strings.LastIndex(rest, "{")
	if brace < 0 {
		return "", false
	}

	header := rest[len(keyword):brace]

	// if init; cond {  /  for init; cond; post {
	prefix, cond, suffix := "", strings.TrimSpace(header), ""
	if parts := strings.Split(header, ";"); len(parts) > 1 {
		condIndex := len(parts) - 1
		if keyword == "for " && len(parts) == 3 {
			condIndex = 1
		}

		prefix = strings.Join(parts[:condIndex], ";") + "; "
		cond = strings.TrimSpace(parts[condIndex])

		if condIndex < len(parts)-1 {
			suffix = ";" + strings.Join(parts[condIndex+1:], ";")
		}
	}

	twisted := "!(" + cond + ")"

	return line[:start] + keyword + prefix + twisted + strings.TrimRight(suffix, " ") + " " + rest[brace:], true
}
