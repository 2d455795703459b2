package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type importRef struct {
	file string // slash-separated, relative to the module root
	imp  string
}

type violation struct {
	importRef
	rule string
}

func TestImportBoundaries(t *testing.T) {
	modulePath, refs := internalImports(t)

	var violations []violation
	for _, ref := range refs {
		for _, bad := range disallowedImports(modulePath, layerFor(ref.file)) {
			if strings.HasPrefix(ref.imp, bad) {
				violations = append(violations, violation{importRef: ref, rule: bad})
				break
			}
		}
	}
	report(t, "import boundary violations", violations)
}

// Provider SDKs stay behind internal/platform and internal/temporalx.
var providerSDKs = []string{
	"google.golang.org/genai",
	"github.com/redis/go-redis/",
	"go.temporal.io/",
}

func TestProviderSDKsOnlyInAdapters(t *testing.T) {
	_, refs := internalImports(t)

	var violations []violation
	for _, ref := range refs {
		if strings.HasPrefix(ref.file, "internal/platform/") || strings.HasPrefix(ref.file, "internal/temporalx/") {
			continue
		}
		for _, sdk := range providerSDKs {
			if strings.HasPrefix(ref.imp, sdk) {
				violations = append(violations, violation{importRef: ref, rule: sdk})
				break
			}
		}
	}
	report(t, "provider SDK imports outside internal/platform and internal/temporalx", violations)
}

func report(t *testing.T, title string, violations []violation) {
	t.Helper()
	if len(violations) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(title + ":\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s imports %q (rule: %q)\n", v.file, v.imp, v.rule)
	}
	t.Fatal(b.String())
}

// internalImports parses every .go file under internal/ and returns its imports.
func internalImports(t *testing.T) (string, []importRef) {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	fset := token.NewFileSet()
	var refs []importRef
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "vendor" || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if imp, err := strconv.Unquote(spec.Path.Value); err == nil {
				refs = append(refs, importRef{file: filepath.ToSlash(rel), imp: imp})
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return modulePath, refs
}

func layerFor(rel string) string {
	for _, layer := range []string{"domain", "platform", "modules", "jobs", "services", "temporalx"} {
		if strings.HasPrefix(rel, "internal/"+layer+"/") {
			return layer
		}
	}
	return ""
}

func disallowedImports(modulePath string, layer string) []string {
	in := func(pkgs ...string) []string {
		out := make([]string, 0, len(pkgs))
		for _, p := range pkgs {
			out = append(out, modulePath+"/internal/"+p)
		}
		return out
	}
	switch layer {
	case "domain":
		return in("data/", "platform/", "modules/", "jobs/", "services", "http", "app", "observability", "temporalx")
	case "platform":
		return in("modules/", "jobs/", "services", "http", "app", "temporalx")
	case "modules":
		return in("jobs/", "services", "http", "app", "temporalx")
	case "jobs":
		return in("services", "http", "app", "temporalx")
	case "services":
		return in("jobs/", "http", "app", "temporalx")
	case "temporalx":
		return in("services", "http", "app")
	default:
		return nil
	}
}

func findModuleRoot(start string) (string, error) {
	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if mp, ok := strings.CutPrefix(line, "module "); ok {
			if mp = strings.TrimSpace(mp); mp != "" {
				return mp, nil
			}
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
