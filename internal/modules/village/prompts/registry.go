package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

type Spec struct {
	Name       PromptName
	Version    int
	System     string
	User       string
	Validators []Validator

	userTmpl *template.Template
}

var (
	registryMu   sync.RWMutex
	registry     = map[PromptName]*Spec{}
	registerOnce sync.Once
)

// RegisterSpec parses the user template eagerly so a malformed prompt fails at startup.
func RegisterSpec(s Spec) {
	tmpl := template.Must(template.New(string(s.Name)).Option("missingkey=zero").Parse(strings.TrimSpace(s.User)))
	s.userTmpl = tmpl
	s.System = strings.TrimSpace(s.System)
	registryMu.Lock()
	registry[s.Name] = &s
	registryMu.Unlock()
}

// Build validates in and renders the named prompt.
func Build(name PromptName, in Input) (system string, user string, err error) {
	registerOnce.Do(RegisterAll)
	registryMu.RLock()
	spec := registry[name]
	registryMu.RUnlock()
	if spec == nil {
		return "", "", fmt.Errorf("prompt %q not registered", name)
	}
	for _, v := range spec.Validators {
		if err := v(in); err != nil {
			return "", "", fmt.Errorf("%s: %w", name, err)
		}
	}
	var buf bytes.Buffer
	if err := spec.userTmpl.Execute(&buf, in); err != nil {
		return "", "", fmt.Errorf("%s: render: %w", name, err)
	}
	return spec.System, buf.String(), nil
}
