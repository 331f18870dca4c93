package renderer

import (
	"bytes"
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"testing"
	"text/template"
)

//go:embed testdata
var testdata embed.FS

var fixPartials = flag.Bool("fix-partials", false, "if true, update failing partial test case .md files with the received output")

func TestFixPartialsIsOff(t *testing.T) {
	if *fixPartials {
		t.Fatal("-fix-partials is enabled. This flag should only be used for updating test fixtures and must be disabled for regular tests.")
	}
}

// goldenCase renders the JSON fixture <name>.json and compares it with the
// golden markdown file. Partials are executed alone; reports go through
// their Render function and are compared with <name>_assembly.md.
type goldenCase struct {
	name   string
	data   func() any
	render func(data any) string // nil for a partial
}

func (c goldenCase) jsonFile() string { return "testdata/" + c.name + ".json" }

func (c goldenCase) goldenFile() string {
	if c.render == nil {
		return "testdata/" + c.name + ".md"
	}
	return "testdata/" + c.name + "_assembly.md"
}

var goldenCases = []goldenCase{
	{name: "summary_orders", data: func() any { return &Summary{} }},
	{name: "summary_drops", data: func() any { return &Summary{} }},
	{name: "comparison_table", data: func() any { return &Comparison{} }},
	{name: "cancel_orders", data: func() any { return &Cancel{} }},
	{
		name:   "summary",
		data:   func() any { return &Summary{} },
		render: func(data any) string { return RenderSummary(data.(*Summary)) },
	},
	{
		name:   "comparison",
		data:   func() any { return &Comparison{} },
		render: func(data any) string { return RenderComparison(data.(*Comparison)) },
	},
	{
		name:   "cancel",
		data:   func() any { return &Cancel{} },
		render: func(data any) string { return RenderCancel(data.(*Cancel)) },
	},
}

func TestGolden(t *testing.T) {
	for _, tc := range goldenCases {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.data()
			raw, err := testdata.ReadFile(tc.jsonFile())
			if err != nil {
				t.Fatalf("failed to read struct file %q: %v", tc.jsonFile(), err)
			}
			if err := json.Unmarshal(raw, data); err != nil {
				t.Fatalf("failed to unmarshal %q: %v", tc.jsonFile(), err)
			}

			var got string
			if tc.render != nil {
				got = tc.render(data)
			} else {
				got = executePartial(t, tc.name, data)
			}
			compareGolden(t, tc.goldenFile(), got)
		})
	}
}

func executePartial(t *testing.T, name string, data any) string {
	t.Helper()
	content, err := fs.ReadFile(templates, name+".md")
	if err != nil {
		t.Fatalf("failed to read template %s.md: %v", name, err)
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		t.Fatalf("failed to parse template %s.md: %v", name, err)
	}
	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		t.Fatalf("failed to execute template %s.md: %v", name, err)
	}
	return b.String()
}

// compareGolden fails when got differs from the golden file, or rewrites the
// file with -fix-partials.
func compareGolden(t *testing.T, file, got string) {
	t.Helper()
	want, err := testdata.ReadFile(file)
	if err != nil && !(os.IsNotExist(err) && *fixPartials) {
		t.Fatalf("failed to read golden file %q: %v", file, err)
	}
	if got == string(want) {
		return
	}
	if !*fixPartials {
		t.Errorf("output mismatch for %s:\n--- want\n+++ got\n%s", file, createDiff(string(want), got))
		return
	}
	if err := os.WriteFile(file, []byte(got), 0644); err != nil {
		t.Fatalf("failed to write updated golden file %q: %v", file, err)
	}
	t.Logf("updated golden file %s", file)
}

func createDiff(want, got string) string {
	return fmt.Sprintf("-%s\n+%s", strings.ReplaceAll(want, "\n", "\n-"), strings.ReplaceAll(got, "\n", "\n+"))
}

// TestGoldenCoverage checks every template has a golden case and every
// testdata file belongs to one.
func TestGoldenCoverage(t *testing.T) {
	tested := map[string]bool{}
	expected := map[string]bool{}
	for _, tc := range goldenCases {
		tested[tc.name+".md"] = true
		expected[tc.jsonFile()] = true
		expected[tc.goldenFile()] = true
	}

	entries, err := fs.ReadDir(templates, ".")
	if err != nil {
		t.Fatalf("failed to read embedded templates: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".md" && !tested[e.Name()] {
			t.Errorf("untested template found: %s. Please add a golden case.", e.Name())
		}
	}

	files, err := fs.ReadDir(testdata, "testdata")
	if err != nil {
		t.Fatalf("failed to read testdata: %v", err)
	}
	var orphans []string
	for _, f := range files {
		if name := "testdata/" + f.Name(); !f.IsDir() && !expected[name] {
			orphans = append(orphans, name)
		}
	}
	slices.Sort(orphans)
	for _, name := range orphans {
		if *fixPartials {
			os.Remove(name)
			t.Logf("removed orphan file: %s", name)
			continue
		}
		t.Errorf("orphan test file found: %s. Please remove it or add a golden case.", name)
	}
}

// TestPartialsAreUsed checks each partial is named after its report and
// referenced by it.
func TestPartialsAreUsed(t *testing.T) {
	for _, tc := range goldenCases {
		if tc.render != nil {
			continue
		}
		report, _, ok := strings.Cut(tc.name, "_")
		if !ok {
			t.Errorf("partial %s is not named <report>_<part>", tc.name)
			continue
		}
		content, err := fs.ReadFile(templates, report+".md")
		if err != nil {
			t.Errorf("partial %s has no report template: %v", tc.name, err)
			continue
		}
		if !strings.Contains(string(content), `"`+tc.name+`"`) {
			t.Errorf("report %s.md never includes %s", report, tc.name)
		}
	}
}
