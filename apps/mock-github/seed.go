package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

// seedRepos populates the store with the demo repositories.
// Called during init before the server accepts requests.
func seedRepos(s *store) {
	seedWidgets(s)
	seedGitops(s)
}

// seedWidgets is a small web app that exercises every entry kind: excluded
// config files, nested directories, an empty file, a symlink and a submodule.
func seedWidgets(s *store) {
	const owner, repo = "acme", "widgets"

	s.putFile(owner, repo, "README.md", "# widgets\n\nA tiny widget library.\n")
	s.putFile(owner, repo, "package.json", `{"name":"widgets","version":"1.0.0"}`)
	s.putFile(owner, repo, "package-lock.json", `{"lockfileVersion":3}`)
	s.putFile(owner, repo, ".gitignore", "node_modules\n")
	s.putFile(owner, repo, "src/index.js", "export * from './widget.js'\n")
	s.putFile(owner, repo, "src/widget.js", widgetSource)
	s.putFile(owner, repo, "src/lib/math.js", "export const clamp = (v, lo, hi) => Math.min(hi, Math.max(lo, v))\n")
	s.putFile(owner, repo, "src/lib/.keep", "")
	s.putFile(owner, repo, "public/favicon.ico", "\x00\x00\x01\x00")
	s.putFile(owner, repo, "docs/guide.md", "## Usage\n\n```js\nimport { Widget } from 'widgets'\n```\n")
	s.put(owner, repo, "docs/latest", repofiles.TypeSymlink, "guide.md")
	s.put(owner, repo, "vendor/ui", repofiles.TypeSubmodule, "")
}

const widgetSource = `export class Widget {
  constructor(name) {
    this.name = name
  }

  render() {
    return '<div class="widget">' + this.name + '</div>'
  }
}
`

// seedGitops is a deeper tree of YAML manifests for exercising concurrency.
func seedGitops(s *store) {
	const owner, repo = "acme", "gitops"

	for _, app := range []string{"billing-api", "user-service"} {
		s.putFile(owner, repo, fmt.Sprintf("apps/%s/base/application.yaml", app), baseApplication(app))
		for _, env := range []string{"dev", "staging", "prod"} {
			s.putFile(owner, repo, fmt.Sprintf("apps/%s/overlays/%s/kustomization.yaml", app, env),
				overlay(app, env))
		}
	}
}

func baseApplication(app string) string {
	return fmt.Sprintf(`apiVersion: argoproj.io/v1alpha1
kind: Application
metadata:
  name: %s
  namespace: argocd
spec:
  project: default
  source:
    repoURL: https://github.com/acme/gitops
    path: apps/%s/base
`, app, app)
}

func overlay(app, env string) string {
	return fmt.Sprintf(`resources:
  - ../../base
namePrefix: %s-
commonLabels:
  app: %s
  env: %s
`, env, app, env)
}

// seedFromDir loads every regular file under dir into the repository
// local/<base name of dir>. Hidden directories are skipped.
func seedFromDir(s *store, dir string) (int, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return 0, err
	}
	repo := filepath.Base(abs)

	n := 0
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		s.putFile("local", repo, filepath.ToSlash(rel), string(raw))
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", dir, err)
	}
	return n, nil
}
