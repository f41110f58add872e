package markup

import (
	"bufio"
	"strings"
)

// Text treats the body as plain text. Lines are joined into paragraphs and
// all whitespace runs collapse to a single space.
type Text struct{}

func (t *Text) Extract(raw string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), len(raw)+1)

	var paragraphs []string
	var current []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, " "))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return collapseSpace(strings.Join(paragraphs, " ")), nil
}
