// Command report_gen turns `go test -json` output into JSON and Markdown
// reports, annotated with the TestPurpose/Scope/Expected/Test Case ID
// comment blocks found on test functions.
//
// Usage:
//
//	go test -json ./... > test.json
//	go run ./scripts/testing -input test.json -out-json out/report.json -out-md out/report.md
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Test types.
const (
	typeUnit        = "UT"
	typeIntegration = "IT"
)

// TestMetadata holds info parsed from Go source comments
type TestMetadata struct {
	Name       string `json:"name"`
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Package    string `json:"package"`
	Category   string `json:"category"`
	Type       string `json:"type"`
}

// GoTestEvent represents a single event from 'go test -json'
type GoTestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// Result is the merged outcome of a single test or subtest.
type Result struct {
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Elapsed     float64      `json:"elapsed_seconds"`
	Package     string       `json:"package"`
	Failure     string       `json:"failure_reason,omitempty"`
	Annotations TestMetadata `json:"annotations"`
}

// Summary holds top-level stats
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	NotRun      int       `json:"not_run"`
	Results     []Result  `json:"results"`
}

// categories maps a directory prefix to its report section, in report order.
var categories = []struct {
	prefix string
	name   string
}{
	{"internal/provisioning", "Provisioning"},
	{"internal/saga", "Saga"},
	{"internal/guard", "Uniqueness Guard"},
	{"internal/identity", "Identity"},
	{"internal/store", "Store"},
	{"internal/transport/http", "API"},
	{"internal/audit", "Audit"},
	{"internal/tenant", "Domain"},
	{"internal/school", "Domain"},
	{"internal/authz", "Domain"},
	{"internal/config", "Platform"},
	{"internal/apperr", "Platform"},
	{"internal/observability", "Platform"},
	{"cmd/", "CLI"},
}

func main() {
	input := flag.String("input", "", "path to go test -json output")
	outJSON := flag.String("out-json", "", "path for the JSON report")
	outMD := flag.String("out-md", "", "path for the Markdown report")
	title := flag.String("title", "Test Report", "report title")
	category := flag.String("category", "", "only include this category")
	testType := flag.String("type", "", "only include this test type (UT, IT)")
	flag.Parse()

	if *input == "" || (*outJSON == "" && *outMD == "") {
		fmt.Fprintln(os.Stderr, "usage: report_gen -input <file> [-out-json <file>] [-out-md <file>]")
		os.Exit(2)
	}

	summary, err := run(*input, *category, *testType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *outJSON != "" {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err == nil {
			err = writeFile(*outJSON, data)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *outMD != "" {
		if err := writeFile(*outMD, []byte(renderMarkdown(summary, *title))); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	// CI gates on the exit status.
	if summary.Failed > 0 {
		fmt.Printf("test report: %d test(s) failed\n", summary.Failed)
		os.Exit(1)
	}
}

func run(input, category, testType string) (Summary, error) {
	module, err := modulePath("go.mod")
	if err != nil {
		return Summary{}, err
	}
	meta, err := scanMetadata(".", module)
	if err != nil {
		return Summary{}, err
	}

	f, err := os.Open(input)
	if err != nil {
		return Summary{}, fmt.Errorf("open test output: %w", err)
	}
	defer f.Close()

	results, err := parseEvents(f, meta)
	if err != nil {
		return Summary{}, err
	}

	filtered := results[:0]
	for _, r := range results {
		if category != "" && r.Annotations.Category != category {
			continue
		}
		if testType != "" && !strings.EqualFold(r.Annotations.Type, testType) {
			continue
		}
		filtered = append(filtered, r)
	}
	return summarize(filtered, time.Now()), nil
}

// modulePath reads the module path from a go.mod file.
func modulePath(goMod string) (string, error) {
	f, err := os.Open(goMod)
	if err != nil {
		return "", fmt.Errorf("read module path: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "module "); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("go.mod has no module directive")
}

// scanMetadata collects annotations for every Test function under root,
// keyed by "<import path>.<TestName>".
func scanMetadata(root, module string) (map[string]TestMetadata, error) {
	meta := make(map[string]TestMetadata)
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, filepath.Dir(path))
		for _, m := range annotations(file, importPath(module, filepath.ToSlash(rel)), filepath.ToSlash(rel)) {
			meta[m.Package+"."+m.Name] = m
		}
		return nil
	})
	return meta, err
}

func importPath(module, rel string) string {
	if rel == "." || rel == "" {
		return module
	}
	return module + "/" + rel
}

// annotations extracts metadata from the Test functions of file.
func annotations(file *ast.File, pkg, rel string) []TestMetadata {
	kind := typeUnit
	for _, group := range file.Comments {
		if group.Pos() >= file.Package {
			break
		}
		for _, c := range group.List {
			if strings.HasPrefix(c.Text, "//go:build") && strings.Contains(c.Text, "integration") {
				kind = typeIntegration
			}
		}
	}

	var out []TestMetadata
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") || fn.Name.Name == "TestMain" {
			continue
		}
		m := TestMetadata{
			Name:     fn.Name.Name,
			Package:  pkg,
			Category: categoryFor(rel),
			Type:     kind,
		}
		if fn.Doc != nil {
			for _, line := range fn.Doc.List {
				text := strings.TrimSpace(strings.TrimPrefix(line.Text, "//"))
				key, value, ok := strings.Cut(text, ":")
				if !ok {
					continue
				}
				value = strings.TrimSpace(value)
				switch key {
				case "TestPurpose":
					m.Purpose = value
				case "Scope":
					m.Scope = value
				case "Security":
					m.Security = value
				case "Expected":
					m.Expected = value
				case "Test Case ID":
					m.TestCaseID = value
				}
			}
		}
		out = append(out, m)
	}
	return out
}

func categoryFor(rel string) string {
	for _, c := range categories {
		if strings.HasPrefix(rel, c.prefix) {
			return c.name
		}
	}
	return "Other"
}

// parseEvents merges go test -json events with meta. Annotated tests that
// never reported are kept with status "not run"; subtests inherit their
// parent's annotations.
func parseEvents(r io.Reader, meta map[string]TestMetadata) ([]Result, error) {
	states := make(map[string]*Result, len(meta))
	for key, m := range meta {
		states[key] = &Result{Name: m.Name, Package: m.Package, Status: "not run", Annotations: m}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev GoTestEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil || ev.Test == "" {
			continue
		}

		key := ev.Package + "." + ev.Test
		res, ok := states[key]
		if !ok {
			parent, _, _ := strings.Cut(ev.Test, "/")
			m, found := meta[ev.Package+"."+parent]
			if !found {
				m = TestMetadata{Package: ev.Package, Category: "Other", Type: typeUnit}
			}
			m.Name = ev.Test
			res = &Result{Name: ev.Test, Package: ev.Package, Annotations: m}
			states[key] = res
		}

		switch ev.Action {
		case "pass", "fail":
			res.Status = ev.Action
			res.Elapsed = ev.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			if res.Status == "" || res.Status == "not run" || res.Status == "fail" {
				res.Failure += ev.Output
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read test output: %w", err)
	}

	out := make([]Result, 0, len(states))
	for _, res := range states {
		if res.Status != "fail" {
			res.Failure = ""
		}
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func summarize(results []Result, now time.Time) Summary {
	s := Summary{GeneratedAt: now, Results: results}
	for _, r := range results {
		s.Total++
		switch r.Status {
		case "pass":
			s.Passed++
		case "fail":
			s.Failed++
		case "skip":
			s.Skipped++
		case "not run":
			s.NotRun++
		}
	}
	return s
}

func renderMarkdown(s Summary, title string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Eduplane %s\n\n", title)
	fmt.Fprintf(&sb, "**Generated:** %s  \n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	status := "PASSED"
	if s.Failed > 0 {
		status = "FAILED"
	}
	fmt.Fprintf(&sb, "**Status:** %s\n\n", status)

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Total | Passed | Failed | Skipped | Not run | Pass Rate |\n")
	sb.WriteString("|-------|--------|--------|---------|---------|-----------|\n")
	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Passed) / float64(s.Total) * 100
	}
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %d | %.1f%% |\n\n", s.Total, s.Passed, s.Failed, s.Skipped, s.NotRun, rate)

	grouped := make(map[string][]Result)
	for _, r := range s.Results {
		grouped[r.Annotations.Category] = append(grouped[r.Annotations.Category], r)
	}

	sb.WriteString("## Results by Category\n\n")
	for _, cat := range categoryOrder() {
		tests := grouped[cat]
		if len(tests) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n", cat)
		sb.WriteString("| ID | Test | Type | Status | Purpose | Security |\n")
		sb.WriteString("|----|------|------|--------|---------|----------|\n")
		for _, t := range tests {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				t.Annotations.TestCaseID, t.Name, t.Annotations.Type, t.Status,
				escapeCell(t.Annotations.Purpose), escapeCell(t.Annotations.Security))
		}
		sb.WriteString("\n")
	}

	if s.Failed > 0 {
		sb.WriteString("## Failure Details\n\n")
		for _, t := range s.Results {
			if t.Status == "fail" {
				fmt.Fprintf(&sb, "### %s (%s)\n\n```\n%s\n```\n\n", t.Name, t.Package, t.Failure)
			}
		}
	}
	return sb.String()
}

func categoryOrder() []string {
	seen := make(map[string]bool)
	var order []string
	for _, c := range categories {
		if !seen[c.name] {
			seen[c.name] = true
			order = append(order, c.name)
		}
	}
	return append(order, "Other")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
