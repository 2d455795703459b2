package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed quests.yaml
var questsFS embed.FS

// Categories a pool quest may carry. The personal-goal enum is the same set minus defense and focus.
var Categories = []string{
	"gold",
	"intelligence",
	"health",
	"strength",
	"wisdom",
	"charisma",
	"stamina",
	"defense",
	"focus",
	"luck",
}

type Quest struct {
	Name           string `yaml:"name" json:"name"`
	Category       string `yaml:"category" json:"category"`
	Weight         int    `yaml:"weight" json:"weight"`
	DaysToComplete int    `yaml:"daysToComplete" json:"daysToComplete"`
}

type yamlCatalog struct {
	Quests []Quest `yaml:"quests"`
}

// Load reads and validates the quest pool. An empty path means the embedded quests.yaml.
func Load(path string) ([]Quest, error) {
	data, err := read(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("quest catalog: %w", err)
	}
	return Parse(data)
}

func read(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return questsFS.ReadFile("quests.yaml")
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) ([]Quest, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("quest catalog: %w", err)
	}
	if len(doc.Quests) == 0 {
		return nil, errors.New("quest catalog: no quests defined")
	}
	out := make([]Quest, 0, len(doc.Quests))
	for i, q := range doc.Quests {
		q.Name = strings.TrimSpace(q.Name)
		q.Category = strings.ToLower(strings.TrimSpace(q.Category))
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("quest catalog entry %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func validate(q Quest) error {
	if q.Name == "" {
		return errors.New("name is required")
	}
	if !IsCategory(q.Category) {
		return fmt.Errorf("unknown category %q", q.Category)
	}
	if q.Weight < 1 || q.Weight > 5 {
		return fmt.Errorf("weight %d out of range [1,5]", q.Weight)
	}
	if q.DaysToComplete < 1 || q.DaysToComplete > 15 {
		return fmt.Errorf("daysToComplete %d out of range [1,15]", q.DaysToComplete)
	}
	return nil
}

func IsCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}
