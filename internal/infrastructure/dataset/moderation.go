package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// LoadNGTable reads the moderation rule set. The file is maintained by hand,
// so structural errors fail loudly at startup instead of silently serving
// with a partial table.
func LoadNGTable(path string) (domain.NGTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.NGTable{}, fmt.Errorf("read ng table: %w", err)
	}

	var table domain.NGTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return domain.NGTable{}, fmt.Errorf("parse ng table %s: %w", path, err)
	}
	for i, rule := range table.Rules {
		if rule.Pattern == "" {
			return domain.NGTable{}, fmt.Errorf("ng table %s: rule %d has an empty pattern", path, i+1)
		}
	}
	return table, nil
}

// TemplateMessages are canned filler lines spoken while a real answer is
// being generated.
type TemplateMessages struct {
	Messages []string `yaml:"messages"`
}

func LoadTemplateMessages(path string) (TemplateMessages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TemplateMessages{}, fmt.Errorf("read template messages: %w", err)
	}

	var out TemplateMessages
	if err := yaml.Unmarshal(data, &out); err != nil {
		return TemplateMessages{}, fmt.Errorf("parse template messages %s: %w", path, err)
	}
	if len(out.Messages) == 0 {
		return TemplateMessages{}, fmt.Errorf("template messages %s holds no entries", path)
	}
	return out, nil
}
