// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks that every message ID passed to i18n.T exists in the
// English locale, that the English locale carries no unused IDs and that all
// other locales define the same IDs as the English one.
//
// Usage, from the repository root:
//
//	go run ./tools/i18n-linter
package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
)

// report collects the findings of one lint run. Every slice is sorted.
type report struct {
	Used     int
	Defined  int
	Missing  []string            // used in code, absent from the primary locale
	Orphaned []string            // defined in the primary locale, never used
	Drift    map[string][]string // locale file -> IDs it lacks or adds
}

func (r report) ok() bool {
	return len(r.Missing) == 0 && len(r.Orphaned) == 0 && len(r.Drift) == 0
}

func main() {
	r, err := lint(".", localesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("%d message IDs used, %d defined in %s\n", r.Used, r.Defined, primaryLocale)
	for _, k := range r.Missing {
		fmt.Printf("missing:  %s\n", k)
	}
	for _, k := range r.Orphaned {
		fmt.Printf("orphaned: %s\n", k)
	}
	files := make([]string, 0, len(r.Drift))
	for f := range r.Drift {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		for _, d := range r.Drift[f] {
			fmt.Printf("drift:    %s %s\n", f, d)
		}
	}
	if !r.ok() {
		os.Exit(1)
	}
}

func lint(root, locales string) (report, error) {
	used, err := usedIDs(root)
	if err != nil {
		return report{}, err
	}
	primary, err := loadLocale(filepath.Join(root, locales, primaryLocale))
	if err != nil {
		return report{}, fmt.Errorf("load %s: %w", primaryLocale, err)
	}

	r := report{Used: len(used), Defined: len(primary), Drift: map[string][]string{}}
	for id := range used {
		if _, ok := primary[id]; !ok {
			r.Missing = append(r.Missing, id)
		}
	}
	for id := range primary {
		if _, ok := used[id]; !ok {
			r.Orphaned = append(r.Orphaned, id)
		}
	}
	sort.Strings(r.Missing)
	sort.Strings(r.Orphaned)

	others, err := filepath.Glob(filepath.Join(root, locales, "*.yaml"))
	if err != nil {
		return report{}, err
	}
	for _, path := range others {
		name := filepath.Base(path)
		if name == primaryLocale {
			continue
		}
		keys, err := loadLocale(path)
		if err != nil {
			return report{}, fmt.Errorf("load %s: %w", name, err)
		}
		var diff []string
		for id := range primary {
			if _, ok := keys[id]; !ok {
				diff = append(diff, "-"+id)
			}
		}
		for id := range keys {
			if _, ok := primary[id]; !ok {
				diff = append(diff, "+"+id)
			}
		}
		if len(diff) > 0 {
			sort.Strings(diff)
			r.Drift[name] = diff
		}
	}
	return r, nil
}

// usedIDs parses every non-test Go file below root and returns the string
// literals passed as the first argument to a selector call named T on the
// i18n package.
func usedIDs(root string) (map[string]struct{}, error) {
	ids := map[string]struct{}{}
	fset := token.NewFileSet()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return err
		}
		ast.Inspect(f, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || len(call.Args) == 0 {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "T" {
				return true
			}
			if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != "i18n" {
				return true
			}
			lit, ok := call.Args[0].(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				return true
			}
			if id, err := strconv.Unquote(lit.Value); err == nil {
				ids[id] = struct{}{}
			}
			return true
		})
		return nil
	})
	return ids, err
}

// loadLocale returns the message IDs of a locale file. Nested maps are
// flattened with dots so both layouts are accepted.
func loadLocale(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	flatten("", doc, keys)
	return keys, nil
}

func flatten(prefix string, node map[string]any, out map[string]struct{}) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = struct{}{}
	}
}
