package repofiles

import (
	"path"
	"sort"
	"strings"
)

// defaultExclusions are configuration artifacts, lockfiles and platform
// cruft that never reach the flattened output.
var defaultExclusions = []string{
	".gitignore",
	"package.json",
	"package-lock.json",
	"tsconfig.json",
	"eslint.config.mjs",
	"favicon.ico",
	".DS_Store",
	".eslintrc.json",
	"next.config.mjs",
	"postcss.config.mjs",
	"vercel.svg",
	"next.svg",
	"tailwind.config.ts",
}

// ExclusionSet is an immutable set of file base names. The zero value
// excludes nothing.
type ExclusionSet struct {
	names map[string]struct{}
}

// NewExclusionSet returns the default exclusions plus extra. Blank names and
// anything containing a slash are ignored since matching is by base name.
func NewExclusionSet(extra ...string) ExclusionSet {
	names := make(map[string]struct{}, len(defaultExclusions)+len(extra))
	for _, n := range defaultExclusions {
		names[n] = struct{}{}
	}
	for _, n := range extra {
		n = strings.TrimSpace(n)
		if n == "" || strings.Contains(n, "/") {
			continue
		}
		names[n] = struct{}{}
	}
	return ExclusionSet{names: names}
}

// Excludes reports whether the base name of p is in the set.
func (s ExclusionSet) Excludes(p string) bool {
	_, ok := s.names[path.Base(p)]
	return ok
}

// Names returns the members in sorted order.
func (s ExclusionSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
