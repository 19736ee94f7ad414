package match

import "github.com/kbarry/remitax-go/internal/domain"

// Config holds the classification thresholds. Higher means stricter; the
// exact values are tuning constants, not business rules.
type Config struct {
	AutoAcceptThreshold float64 // winning score at or above → auto-accept
	ReviewThreshold     float64 // winning score at or above (but under auto) → manual review
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		AutoAcceptThreshold: 0.80,
		ReviewThreshold:     0.60,
	}
}

// Result is the outcome of matching a receipt's recipient against the
// declared family. Relation and MatchedName are reported whenever any
// candidate scored above zero, for audit display.
type Result struct {
	IsMatch              bool            `json:"is_match"`
	Confidence           float64         `json:"confidence"`
	Relation             domain.Relation `json:"relation"`
	MatchedName          string          `json:"matched_name,omitempty"`
	RequiresManualReview bool            `json:"requires_manual_review"`
}

// Matcher scores recipients against a family declaration. It is pure and
// side-effect free; persisting the result is the caller's concern.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a matcher with the given thresholds.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

type candidate struct {
	name     string
	relation domain.Relation
}

// Match scores receiverName against every declared relative and classifies
// the best score. Candidates are evaluated in declaration order (father,
// mother, children in list order) and ties keep the earlier candidate.
func (m *Matcher) Match(receiverName string, fam *domain.FamilyDeclaration) Result {
	none := Result{Relation: domain.RelationNone}
	if Normalize(receiverName) == "" || fam.IsEmpty() {
		return none
	}

	var candidates []candidate
	if fam.FatherName != "" {
		candidates = append(candidates, candidate{fam.FatherName, domain.RelationFather})
	}
	if fam.MotherName != "" {
		candidates = append(candidates, candidate{fam.MotherName, domain.RelationMother})
	}
	for _, c := range fam.Children {
		if c.Name != "" {
			candidates = append(candidates, candidate{c.Name, domain.RelationChild})
		}
	}
	if len(candidates) == 0 {
		return none
	}

	best := none
	for _, c := range candidates {
		score := Similarity(receiverName, c.name)
		if score > best.Confidence {
			best.Confidence = score
			best.Relation = c.relation
			best.MatchedName = c.name
		}
	}

	if best.Confidence == 0 {
		return none
	}

	switch {
	case best.Confidence >= m.cfg.AutoAcceptThreshold:
		best.IsMatch = true
	case best.Confidence >= m.cfg.ReviewThreshold:
		best.RequiresManualReview = true
	}
	return best
}
