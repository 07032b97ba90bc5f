package decision

import "github.com/crewvet/trust-cli/internal/model"

// Minimum evidence for competency signals to affect a decision.
const (
	MinLanguageConfidence = 0.6
	MinCoverage           = 0.2
)

// CompetencyCanDowngrade reports whether a competency snapshot carries
// enough evidence to escalate a decision. Snapshots without language
// confidence or coverage metadata are trusted as before. A nil snapshot
// cannot downgrade anything.
func CompetencyCanDowngrade(c *model.CompetencySnapshot) bool {
	if c == nil {
		return false
	}
	if c.LanguageConfidence != nil && *c.LanguageConfidence < MinLanguageConfidence {
		return false
	}
	if c.Coverage != nil && *c.Coverage < MinCoverage {
		return false
	}
	return true
}
