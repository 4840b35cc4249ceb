package kicad

import (
	"bufio"
	"bytes"
	"strings"
)

// LegacySymbolNames returns the names declared by DEF lines of a pre-6.0 .lib file.
// A leading ~ (hidden value field) is stripped.
func LegacySymbolNames(data []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != "DEF" {
			continue
		}
		name := strings.TrimPrefix(strings.Trim(fields[1], `"`), "~")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
