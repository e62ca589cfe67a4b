package scoring

import (
	"encoding/json"
	"os"

	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// LoadRulesFile reads an action-rule list from disk.  A missing, corrupt, or
// empty file falls back to the default ladder and the file is rewritten with
// it, so a fresh or damaged deployment self-heals instead of blocking runs.
func LoadRulesFile(path string) ([]ActionRule, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rewriteDefaults(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "reading action rule file").
			WithDetail(path)
	}
	var rules []ActionRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return rewriteDefaults(path)
	}
	if len(rules) == 0 {
		return rewriteDefaults(path)
	}
	return rules, nil
}

// rewriteDefaults persists the default ladder at path, best effort, and
// returns it.
func rewriteDefaults(path string) ([]ActionRule, error) {
	rules := DefaultRules()
	if raw, err := json.MarshalIndent(rules, "", "  "); err == nil {
		_ = os.WriteFile(path, raw, 0o644)
	}
	return rules, nil
}
