package repofiles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

func TestExclusionSet_Defaults(t *testing.T) {
	s := repofiles.NewExclusionSet()

	for _, p := range []string{
		".gitignore", "package.json", "package-lock.json", "tsconfig.json",
		"eslint.config.mjs", "favicon.ico", ".DS_Store", ".eslintrc.json",
		"next.config.mjs", "postcss.config.mjs", "vercel.svg", "next.svg",
		"tailwind.config.ts",
	} {
		assert.True(t, s.Excludes(p), p)
	}
	assert.Len(t, s.Names(), 13)
}

func TestExclusionSet_MatchesBaseNameAnywhere(t *testing.T) {
	s := repofiles.NewExclusionSet()

	assert.True(t, s.Excludes("apps/web/package.json"))
	assert.True(t, s.Excludes("public/favicon.ico"))
	assert.False(t, s.Excludes("package.json.bak"))
	assert.False(t, s.Excludes("package.json/readme.md"))
	assert.False(t, s.Excludes("src/index.js"))
}

func TestExclusionSet_Extra(t *testing.T) {
	s := repofiles.NewExclusionSet("go.sum", "  ", "vendor/modules.txt", " yarn.lock ")

	assert.True(t, s.Excludes("go.sum"))
	assert.True(t, s.Excludes("web/yarn.lock"))
	assert.False(t, s.Excludes("vendor/modules.txt"))
	assert.Len(t, s.Names(), 15)
}

func TestExclusionSet_ZeroValue(t *testing.T) {
	var s repofiles.ExclusionSet
	assert.False(t, s.Excludes("package.json"))
	assert.Empty(t, s.Names())
}
