package agent

import (
	"errors"
	"strings"
)

var errNoOutlineHeading = errors.New("no valid outline found in model response")

// returns the top-level ("## ") headings of an outline in order
func ParseSections(outline string) []string {
	var sections []string

	for _, line := range strings.Split(outline, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") && strings.TrimSpace(trimmed[3:]) != "" {
			sections = append(sections, trimmed)
		}
	}

	return sections
}

func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)

	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}

	return level >= 1 && level <= 6 && len(trimmed) > level && trimmed[level] == ' '
}

// drops everything before the first markdown heading
func cleanOutline(raw string) (string, error) {
	lines := strings.Split(stripCodeFence(raw), "\n")

	for i, line := range lines {
		if isHeading(line) {
			return strings.TrimSpace(strings.Join(lines[i:], "\n")), nil
		}
	}

	return "", errNoOutlineHeading
}

func isTagLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= 2 && strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">")
}

// drops leading blank and <tag> lines; empty when nothing else remains
func cleanSection(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	start := 0
	for start < len(lines) {
		line := lines[start]
		if strings.TrimSpace(line) != "" && !isTagLine(line) {
			break
		}

		start++
	}

	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}
