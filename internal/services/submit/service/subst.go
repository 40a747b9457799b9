package service

import (
	"regexp"
	"strings"
)

var reVar = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// substitute expands ${NAME} and $NAME references from vars. References to
// names the map does not bind are left verbatim so downstream tooling can
// expand its own placeholders.
func substitute(template string, vars map[string]string) string {
	return reVar.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1:]
		if strings.HasPrefix(name, "{") {
			name = name[1 : len(name)-1]
		}
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
