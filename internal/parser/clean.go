package parser

import "strings"

// cleanModelJSON strips the Markdown fences and stray prose models sometimes
// wrap around JSON output, keeping only the outermost object or array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost JSON value if prose surrounds it.
	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")
	switch {
	case arrStart != -1 && (objStart == -1 || arrStart < objStart):
		if end := strings.LastIndex(s, "]"); end > arrStart {
			s = s[arrStart : end+1]
		}
	case objStart != -1:
		if end := strings.LastIndex(s, "}"); end > objStart {
			s = s[objStart : end+1]
		}
	}

	return strings.TrimSpace(s)
}
