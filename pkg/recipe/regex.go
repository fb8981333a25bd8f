package recipe

import (
	"regexp"
	"strings"

	"isoforge/pkg/catalog"
)

// CompileAnchored compiles a regex that must match the whole input.
func CompileAnchored(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
	return regexp.Compile("^(?:" + pattern + ")$")
}

func matching(cat *catalog.Catalog, re *regexp.Regexp) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, pkg := range cat.Flatten() {
		if re.MatchString(pkg) && !seen[pkg] {
			seen[pkg] = true
			out = append(out, pkg)
		}
	}
	return out
}
