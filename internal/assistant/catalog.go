package assistant

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

type catalogFile struct {
	Greeting    string            `yaml:"greeting"`
	Suggestions []string          `yaml:"suggestions"`
	Component   string            `yaml:"component"`
	Responses   map[string]string `yaml:"responses"`
}

// Catalog holds the canned texts the classifier answers with.
type Catalog struct {
	Greeting    string
	Suggestions []string
	Component   string
	raw         map[Intent]string
	templates   map[Intent]*template.Template
}

// TemplateData is what response templates can reference.
type TemplateData struct {
	Input       string
	ProjectName string
	FileName    string
	Component   string
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("embedded templates are invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML override from path. Entries missing in the file
// keep their built-in values.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	override, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	base := DefaultCatalog()
	if override.Greeting != "" {
		base.Greeting = override.Greeting
	}
	if len(override.Suggestions) > 0 {
		base.Suggestions = override.Suggestions
	}
	if override.Component != "" {
		base.Component = override.Component
	}
	for intent, tmpl := range override.templates {
		base.templates[intent] = tmpl
		base.raw[intent] = override.raw[intent]
	}
	return base, nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	c := &Catalog{
		Greeting:    strings.TrimSpace(f.Greeting),
		Suggestions: f.Suggestions,
		Component:   strings.TrimRight(f.Component, "\n"),
		raw:         make(map[Intent]string),
		templates:   make(map[Intent]*template.Template),
	}
	for name, text := range f.Responses {
		intent := Intent(name)
		if !intent.valid() {
			return nil, fmt.Errorf("unknown response %q", name)
		}
		text = strings.TrimRight(text, "\n")
		tmpl, err := template.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse response %q: %w", name, err)
		}
		c.raw[intent] = text
		c.templates[intent] = tmpl
	}
	return c, nil
}

// Render fills the template for intent. A template that fails to execute
// yields its raw text so that a response is always produced.
func (c *Catalog) Render(intent Intent, data TemplateData) string {
	tmpl, ok := c.templates[intent]
	if !ok {
		return ""
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return c.raw[intent]
	}
	return sb.String()
}
