// internal/web/bulk.go
package web

import (
	"fmt"
	"strconv"
	"strings"
)

// HostInput is one parsed line of a bulk registration.
type HostInput struct {
	Host     string
	Port     int
	Instance string
}

// InvalidLine describes one rejected line. Line numbers are 1-based and
// count every input line, including blank ones.
type InvalidLine struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// ParseBulk parses "host port instance" lines. Blank lines are skipped;
// malformed lines and in-batch duplicates are returned as invalid lines so
// one bad entry never rejects the whole batch.
func ParseBulk(input string) ([]HostInput, []InvalidLine) {
	var (
		valid   []HostInput
		invalid []InvalidLine
	)
	seen := make(map[string]bool)

	for i, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			invalid = append(invalid, InvalidLine{
				Line:    i + 1,
				Content: line,
				Reason:  fmt.Sprintf("expected 'host port instance', got %d fields", len(fields)),
			})
			continue
		}

		port, err := strconv.Atoi(fields[1])
		if err != nil {
			invalid = append(invalid, InvalidLine{
				Line:    i + 1,
				Content: line,
				Reason:  "port is not a number: " + fields[1],
			})
			continue
		}
		if port < 1 || port > 65535 {
			invalid = append(invalid, InvalidLine{
				Line:    i + 1,
				Content: line,
				Reason:  fmt.Sprintf("port %d out of range", port),
			})
			continue
		}

		key := fmt.Sprintf("%s:%d:%s", fields[0], port, fields[2])
		if seen[key] {
			invalid = append(invalid, InvalidLine{
				Line:    i + 1,
				Content: line,
				Reason:  "duplicate of an earlier line",
			})
			continue
		}
		seen[key] = true

		valid = append(valid, HostInput{
			Host:     fields[0],
			Port:     port,
			Instance: fields[2],
		})
	}

	return valid, invalid
}
