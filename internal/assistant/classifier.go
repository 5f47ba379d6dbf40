// Package assistant picks a canned reply for free-text chat input.
//
// Input is matched against an ordered list of keyword rules; the first rule
// whose keywords occur in the lowercased input wins. Replies may carry side
// effects (create a project, add a file) that the caller applies.
package assistant

import (
	"fmt"
	"strings"
)

type Intent string

const (
	IntentCreateProject Intent = "create_project"
	IntentGenerateCode  Intent = "generate_code"
	IntentTest          Intent = "test"
	IntentDeploy        Intent = "deploy"
	IntentHelp          Intent = "help"
	IntentFallback      Intent = "fallback"
)

func (i Intent) valid() bool {
	switch i {
	case IntentCreateProject, IntentGenerateCode, IntentTest, IntentDeploy, IntentHelp, IntentFallback:
		return true
	}
	return false
}

type ProjectRequest struct {
	Name        string
	Description string
}

type FileRequest struct {
	Name    string
	Type    string
	Content string
}

// Response is a classified reply. Project and File are nil unless the reply
// asks the caller to create them.
type Response struct {
	Intent  Intent
	Content string
	Project *ProjectRequest
	File    *FileRequest
}

// Rule is one (predicate, handler) pair of the dispatch table.
type Rule struct {
	Intent   Intent
	Keywords []string
	handle   func(c *Classifier, input string) Response
}

// Matches reports whether any keyword occurs in lower, which must already be lowercased.
func (r Rule) Matches(lower string) bool {
	return containsAny(lower, r.Keywords...)
}

type Classifier struct {
	catalog *Catalog
	rules   []Rule
}

func New(catalog *Catalog) *Classifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Classifier{
		catalog: catalog,
		rules: []Rule{
			{Intent: IntentCreateProject, Keywords: []string{"create", "build", "make"}, handle: (*Classifier).createProject},
			{Intent: IntentGenerateCode, Keywords: []string{"component", "code", "generate"}, handle: (*Classifier).generateCode},
			{Intent: IntentTest, Keywords: []string{"test", "check"}, handle: plainReply(IntentTest)},
			{Intent: IntentDeploy, Keywords: []string{"deploy", "publish"}, handle: plainReply(IntentDeploy)},
			{Intent: IntentHelp, Keywords: []string{"help", "what", "how"}, handle: plainReply(IntentHelp)},
		},
	}
}

// Rules returns the dispatch table in priority order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

func (c *Classifier) Catalog() *Catalog { return c.catalog }

// Classify never fails: input that matches no rule gets the fallback reply.
func (c *Classifier) Classify(input string) Response {
	lower := strings.ToLower(input)
	for _, r := range c.rules {
		if r.Matches(lower) {
			return r.handle(c, input)
		}
	}
	return Response{
		Intent:  IntentFallback,
		Content: c.catalog.Render(IntentFallback, TemplateData{Input: input}),
	}
}

func (c *Classifier) createProject(input string) Response {
	name := ProjectName(input)
	return Response{
		Intent:  IntentCreateProject,
		Content: c.catalog.Render(IntentCreateProject, TemplateData{Input: input, ProjectName: name}),
		Project: &ProjectRequest{
			Name:        name,
			Description: fmt.Sprintf("Generated from: \"%s\"", input),
		},
	}
}

func (c *Classifier) generateCode(input string) Response {
	file := &FileRequest{
		Name:    Slugify(input) + ".js",
		Type:    "javascript",
		Content: c.catalog.Component,
	}
	return Response{
		Intent: IntentGenerateCode,
		Content: c.catalog.Render(IntentGenerateCode, TemplateData{
			Input:     input,
			FileName:  file.Name,
			Component: c.catalog.Component,
		}),
		File: file,
	}
}

func plainReply(intent Intent) func(c *Classifier, input string) Response {
	return func(c *Classifier, input string) Response {
		return Response{Intent: intent, Content: c.catalog.Render(intent, TemplateData{Input: input})}
	}
}

var projectNames = []struct {
	keywords []string
	name     string
}{
	{[]string{"ecommerce", "e-commerce", "shop"}, "E-commerce Platform"},
	{[]string{"blog"}, "Blog Platform"},
	{[]string{"portfolio"}, "Portfolio Website"},
	{[]string{"todo", "task"}, "Task Manager App"},
}

// DefaultProjectName is used when no naming keyword matches.
const DefaultProjectName = "Web Application"

// ProjectName derives a project name from input independently of rule matching.
func ProjectName(input string) string {
	lower := strings.ToLower(input)
	for _, pn := range projectNames {
		if containsAny(lower, pn.keywords...) {
			return pn.name
		}
	}
	return DefaultProjectName
}

// Slugify lowercases s and replaces each run of whitespace with a hyphen.
func Slugify(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
