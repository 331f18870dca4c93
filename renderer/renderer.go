// Package renderer turns run results into markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var embedded embed.FS

// templates holds the *.md templates. A template named after another one
// plus a "_suffix" is a partial of it.
var templates = must(fs.Sub(embedded, "templates"))

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// RenderSummary renders the order summary shown at the end of a confirmation run.
func RenderSummary(s *Summary) string { return render("summary", s) }

// RenderComparison renders the target versus actual report.
func RenderComparison(c *Comparison) string { return render("comparison", c) }

// RenderCancel renders the outcome of a cancellation run.
func RenderCancel(c *Cancel) string { return render("cancel", c) }

// render executes the report template name.md with its partials name_*.md
// defined under their base name. Errors are rendered in place of the report.
func render(name string, data any) string {
	tmpl, err := parse(name)
	if err != nil {
		return fmt.Sprintf("error preparing report %q: %v", name, err)
	}
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", name, err)
	}
	return b.String()
}

func parse(name string) (*template.Template, error) {
	content, err := fs.ReadFile(templates, name+".md")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s.md: %w", name, err)
	}
	partials, err := fs.Glob(templates, name+"_*.md")
	if err != nil {
		return nil, err
	}
	for _, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return nil, err
		}
		if _, err := tmpl.New(strings.TrimSuffix(file, ".md")).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parsing partial %s: %w", file, err)
		}
	}
	return tmpl, nil
}
