package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// TestFunc is one parsed test function.
type TestFunc struct {
	Name     string
	Doc      string
	Scenario string // "Scenario:" paragraph of the doc comment
	Expected string // "Expected:" paragraph of the doc comment
	Line     int
	IsTable  bool
}

// TestFile is a parsed _test.go file.
type TestFile struct {
	Name  string
	Path  string
	Tests []TestFunc
}

// TestPackage groups the test files of one directory.
type TestPackage struct {
	Name       string
	Files      []TestFile
	TotalTests int
}

// ParseTestFiles walks root and parses every *_test.go file.
// Hidden, vendor and underscore directories are skipped like the go tool
// does.
func ParseTestFiles(root string, integrationOnly bool) ([]TestPackage, error) {
	byDir := make(map[string]*TestPackage)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		if integrationOnly && !strings.HasSuffix(d.Name(), "_integration_test.go") {
			return nil
		}

		tf, err := parseTestFile(path)
		if err != nil {
			return err
		}
		if len(tf.Tests) == 0 {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil || rel == "." {
			rel = filepath.Base(root)
		}
		pkg, ok := byDir[rel]
		if !ok {
			pkg = &TestPackage{Name: filepath.ToSlash(rel)}
			byDir[rel] = pkg
		}
		pkg.Files = append(pkg.Files, *tf)
		pkg.TotalTests += len(tf.Tests)
		return nil
	})
	if err != nil {
		return nil, err
	}

	packages := make([]TestPackage, 0, len(byDir))
	for _, pkg := range byDir {
		sort.Slice(pkg.Files, func(i, j int) bool { return pkg.Files[i].Name < pkg.Files[j].Name })
		packages = append(packages, *pkg)
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	return packages, nil
}

func parseTestFile(path string) (*TestFile, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	tf := &TestFile{Name: filepath.Base(path), Path: path}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || !strings.HasPrefix(fn.Name.Name, "Test") || !isTestFunction(fn) {
			continue
		}

		test := TestFunc{
			Name:    fn.Name.Name,
			Line:    fset.Position(fn.Pos()).Line,
			IsTable: detectTableDriven(fn),
		}
		if fn.Doc != nil {
			test.Doc = strings.TrimSpace(fn.Doc.Text())
			test.Scenario = docField(test.Doc, "Scenario:")
			test.Expected = docField(test.Doc, "Expected:")
		}
		tf.Tests = append(tf.Tests, test)
	}
	return tf, nil
}

// docField returns the text after label up to the next blank line or label.
func docField(doc, label string) string {
	var parts []string
	in := false
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, label):
			in = true
			line = strings.TrimSpace(strings.TrimPrefix(line, label))
		case !in:
			continue
		case line == "" || strings.HasPrefix(line, "Scenario:") || strings.HasPrefix(line, "Expected:"):
			return strings.Join(parts, " ")
		}
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// isTestFunction reports whether fn takes a single *testing.T or *testing.B.
func isTestFunction(fn *ast.FuncDecl) bool {
	if fn.Type.Params == nil || len(fn.Type.Params.List) != 1 {
		return false
	}
	star, ok := fn.Type.Params.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "testing" && (sel.Sel.Name == "T" || sel.Sel.Name == "B")
}

// detectTableDriven looks for a range loop calling t.Run.
func detectTableDriven(fn *ast.FuncDecl) bool {
	if fn.Body == nil {
		return false
	}

	found := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		loop, ok := n.(*ast.RangeStmt)
		if !ok || found {
			return !found
		}
		ast.Inspect(loop.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return !found
			}
			if sel, ok := call.Fun.(*ast.SelectorExpr); ok && sel.Sel.Name == "Run" {
				found = true
			}
			return !found
		})
		return !found
	})
	return found
}
