package manifest

import "strings"

// splitLines breaks content into lines and reports the terminator style and
// whether the last line was terminated.
func splitLines(content string) (lines []string, eol string, trailing bool) {
	eol = "\n"
	if strings.Contains(content, "\r\n") {
		eol = "\r\n"
	}
	if content == "" {
		return nil, eol, false
	}

	trailing = strings.HasSuffix(content, "\n")
	body := strings.TrimSuffix(content, "\n")
	lines = strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, eol, trailing
}

func joinLines(lines []string, eol string, trailing bool) string {
	if len(lines) == 0 {
		return ""
	}
	out := strings.Join(lines, eol)
	if trailing {
		out += eol
	}
	return out
}

// findHeader returns the index of the first line equal to header once trimmed,
// or -1.
func findHeader(lines []string, header string) int {
	header = strings.TrimSpace(header)
	for i, line := range lines {
		if strings.TrimSpace(line) == header {
			return i
		}
	}
	return -1
}

// isBoundary reports whether line ends a section body.
func isBoundary(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "[")
}

// sectionEnd returns the index just past the body of the section whose header
// is at start.
func sectionEnd(lines []string, start int) int {
	for i := start + 1; i < len(lines); i++ {
		if isBoundary(lines[i]) {
			return i
		}
	}
	return len(lines)
}

// sectionKeys collects the key names set in the section whose header is at
// start. A line without '=' counts as a key in full.
func sectionKeys(lines []string, start int) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, line := range lines[start+1 : sectionEnd(lines, start)] {
		key, _, _ := strings.Cut(line, "=")
		keys[strings.TrimSpace(key)] = struct{}{}
	}
	return keys
}

func insertLine(lines []string, at int, line string) []string {
	lines = append(lines, "")
	copy(lines[at+1:], lines[at:])
	lines[at] = line
	return lines
}
