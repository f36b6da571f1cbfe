package scenario

import (
	"fmt"
	"sort"
	"strings"

	domainClaims "gridtruth/domain/claims"
	"gridtruth/domain/core"
	domainScenario "gridtruth/domain/scenario"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/domain/verdict"
)

// Context is what a template may read. Templates never recompute economics;
// they only pick figures out of the decision pack.
type Context struct {
	Pack       *domainScenario.DecisionPack
	Coverage   domainScenario.CoverageSnapshot
	Policy     domainClaims.Policy
	Verifier   verdict.CheckStatus
	Confidence domainTruth.Tier
	Options    Options
}

// Outcome is a template's raw answer before claims and verifier gating.
type Outcome struct {
	Status           domainScenario.Status
	KPIs             domainScenario.KPIs
	CandidateID      string
	SourcePaths      []string
	BlockedReasons   []string
	RequiredNextData []string
	Warnings         []string
	Downgrade        bool
}

// Template is one scenario definition. USDClaims and KWhClaims name the claims
// that must be allowed for the USD and kWh figures to be published.
type Template struct {
	ID        string
	Title     string
	Category  domainScenario.Category
	Priority  int
	USDClaims []domainClaims.Key
	KWhClaims []domainClaims.Key
	Evaluate  func(Context) Outcome
}

// Registry is an ordered, capped, immutable template list.
type Registry struct {
	templates []Template
}

// NewRegistry orders templates by priority then id, rejects duplicates and
// keeps at most maxTemplates.
func NewRegistry(maxTemplates int, templates ...Template) (*Registry, error) {
	if maxTemplates < 1 {
		return nil, fmt.Errorf("%w: template cap must be at least 1", core.ErrInvalidRegistry)
	}
	seen := make(map[string]bool, len(templates))
	list := make([]Template, 0, len(templates))
	for _, t := range templates {
		t.ID = strings.TrimSpace(t.ID)
		switch {
		case t.ID == "":
			return nil, fmt.Errorf("%w: template without id", core.ErrInvalidRegistry)
		case t.Evaluate == nil:
			return nil, fmt.Errorf("%w: template %s has no evaluator", core.ErrInvalidRegistry, t.ID)
		case seen[t.ID]:
			return nil, fmt.Errorf("%w: duplicate template id %s", core.ErrInvalidRegistry, t.ID)
		}
		seen[t.ID] = true
		t.USDClaims = append([]domainClaims.Key(nil), t.USDClaims...)
		t.KWhClaims = append([]domainClaims.Key(nil), t.KWhClaims...)
		list = append(list, t)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].ID < list[j].ID
	})
	if len(list) > maxTemplates {
		list = list[:maxTemplates]
	}
	return &Registry{templates: list}, nil
}

// DefaultRegistry builds the standard template set.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultMaxTemplates, DefaultTemplates()...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Templates returns a copy of the ordered templates.
func (r *Registry) Templates() []Template {
	return append([]Template(nil), r.templates...)
}

// Len is the number of templates.
func (r *Registry) Len() int {
	return len(r.templates)
}
