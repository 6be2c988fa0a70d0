package fs

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// EffectivePatterns returns the exclude rules of an ignore file in file
// order, trimmed. Blank lines, comments ('#' or ';') and rules that name
// nothing, such as "- /", are dropped. The rules themselves are handed
// to rsync's --exclude-from untouched.
func EffectivePatterns(lines []string) []string {
	var patterns []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		rule := strings.TrimSpace(strings.TrimPrefix(line, "- "))
		if strings.Trim(rule, "/") == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
