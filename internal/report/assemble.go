package report

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"
)

// TemplateError is fatal: the template references fields the generator
// never produced, which would otherwise ship a silently broken report.
type TemplateError struct {
	Fields []string
}

func (e *TemplateError) Error() string {
	return "template references undefined fields: " + strings.Join(e.Fields, ", ")
}

// Assemble executes a Markdown template against the field map. Every field
// the template references must be present; unknown fields are collected
// into a single TemplateError before anything renders.
func Assemble(tmpl string, fields map[string]string) (string, error) {
	t, err := template.New("report").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	missing := make(map[string]bool)
	for _, tt := range t.Templates() {
		if tt.Tree != nil {
			collectMissing(tt.Tree.Root, fields, missing)
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", &TemplateError{Fields: names}
	}

	var buf strings.Builder
	if err := t.Execute(&buf, fields); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// collectMissing walks the parse tree for {{.field}} references the field
// map does not satisfy.
func collectMissing(node parse.Node, fields map[string]string, missing map[string]bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectMissing(child, fields, missing)
		}
	case *parse.ActionNode:
		collectPipe(n.Pipe, fields, missing)
	case *parse.IfNode:
		collectPipe(n.Pipe, fields, missing)
		collectMissing(n.List, fields, missing)
		if n.ElseList != nil {
			collectMissing(n.ElseList, fields, missing)
		}
	case *parse.RangeNode:
		collectPipe(n.Pipe, fields, missing)
		collectMissing(n.List, fields, missing)
		if n.ElseList != nil {
			collectMissing(n.ElseList, fields, missing)
		}
	case *parse.WithNode:
		collectPipe(n.Pipe, fields, missing)
		collectMissing(n.List, fields, missing)
		if n.ElseList != nil {
			collectMissing(n.ElseList, fields, missing)
		}
	}
}

func collectPipe(pipe *parse.PipeNode, fields map[string]string, missing map[string]bool) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			if field, ok := arg.(*parse.FieldNode); ok && len(field.Ident) > 0 {
				if _, present := fields[field.Ident[0]]; !present {
					missing[field.Ident[0]] = true
				}
			}
		}
	}
}
