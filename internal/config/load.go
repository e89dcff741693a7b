package config

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"

	"github.com/neurlang/ramjet/internal/ctxlog"
)

// Load parses the given .hcl files and every .hcl file below the given
// directories and merges them. Collections must have unique names, and the
// metadatabase and database blocks may appear once overall.
func Load(ctx context.Context, paths ...string) (*File, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no .hcl files in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	out := &File{Collections: make(map[string]*Collection)}
	parser := hclparse.NewParser()
	evalCtx := evalContext()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, errors.Wrapf(diags, "parse %s", file)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, errors.Wrapf(diags, "decode %s", file)
		}
		if root.Metadatabase != nil {
			if out.Metadatabase != nil {
				return nil, errors.Errorf("%s: second metadatabase block", file)
			}
			out.Metadatabase = root.Metadatabase
		}
		if root.Database != nil {
			if out.Database != nil {
				return nil, errors.Errorf("%s: second database block", file)
			}
			out.Database = root.Database
		}
		for _, c := range root.Collections {
			if _, ok := out.Collections[c.Name]; ok {
				return nil, errors.Errorf("%s: collection %q declared twice", file, c.Name)
			}
			out.Collections[c.Name] = c
		}
	}
	if out.Database == nil {
		return nil, errors.New("no database block")
	}
	logger.Debug("HCL loading complete.", "collections", len(out.Collections), "metadatabase", out.Metadatabase != nil)
	return out, nil
}

// evalContext exposes the environment as env.NAME.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && hclIdentifier(pair[0]) {
			env[pair[0]] = cty.StringVal(pair[1])
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
	}
}

func hclIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// findAllHCLFiles walks all given paths and returns a sorted list of all .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "access %s", path)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", path)
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
