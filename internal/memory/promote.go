package memory

import (
	"context"
	"regexp"
	"strings"
)

// Candidate is a durable, user-specific fact detected in a turn.
type Candidate struct {
	Type  string
	Value string

	// Singleton marks fact types that hold one truth at a time (name,
	// locale, location): promotion replaces prior values of the type
	// instead of accumulating.
	Singleton bool
}

// PromotionPolicy decides which statements in a user turn are durable
// enough to promote from short-term into long-term memory. What counts as
// "durable" is deliberately pluggable; the default is conservative.
type PromotionPolicy interface {
	Extract(message string) []Candidate
}

// Promoter applies a policy to a turn and writes the results into
// long-term memory with dedupe.
type Promoter struct {
	policy PromotionPolicy
	ltm    *LongTerm
}

// NewPromoter wires a policy to the long-term store.
func NewPromoter(policy PromotionPolicy, ltm *LongTerm) *Promoter {
	return &Promoter{policy: policy, ltm: ltm}
}

// PromoteTurn evaluates the user turn and promotes detected facts.
// Returns the number of facts written or merged.
func (p *Promoter) PromoteTurn(ctx context.Context, userID, message string) (int, error) {
	candidates := p.policy.Extract(message)
	promoted := 0
	for _, c := range candidates {
		var err error
		if c.Singleton {
			_, err = p.ltm.ReplaceType(ctx, userID, c.Type, c.Value, "conversation", 0.75)
		} else {
			_, err = p.ltm.Upsert(ctx, userID, c.Type, c.Value, "conversation", 0.7)
		}
		if err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// singletonTypes hold one truth at a time.
var singletonTypes = map[string]bool{
	"name":     true,
	"company":  true,
	"location": true,
	"locale":   true,
	"timezone": true,
	"role":     true,
	"org":      true,
	"persona":  true,
	"tone":     true,
}

// HeuristicPolicy is the default promotion policy: explicit first-person
// statements of preference, identity, or circumstance. One match per
// category per turn keeps promotion conservative.
type HeuristicPolicy struct{}

var heuristicPatterns = []struct {
	factType string
	re       *regexp.Regexp
	group    int
}{
	{"preference", regexp.MustCompile(`(?i)\bi prefer\s+([^.;,\n]+)`), 1},
	{"org", regexp.MustCompile(`(?i)\bi work (?:at|for)\s+([^.;,\n]+)`), 1},
	{"location", regexp.MustCompile(`(?i)\b(?:i live in|i'm from|im from|based in)\s+([^.;,\n]+)`), 1},
	{"locale", regexp.MustCompile(`(?i)\b(?:language|locale)\s*[:\-]?\s*([a-z]{2}(?:-[A-Za-z]{2})?)\b`), 1},
	{"timezone", regexp.MustCompile(`(?i)\btimezone\s*[:\-]?\s*([A-Za-z_/+\-0-9]+)`), 1},
	{"tool", regexp.MustCompile(`(?i)\b(?:we use|i use|using)\s+(kubernetes|docker|redis|postgres|mysql|terraform|grafana)\b`), 1},
	{"expertise", regexp.MustCompile(`(?i)\b(?:experienced in|expert in|i specialize in)\s+([^.;,\n]+)`), 1},
	{"goal", regexp.MustCompile(`(?i)\b(?:i want to|i plan to|my goal is to)\s+([^.;,\n]+)`), 1},
	{"constraint", regexp.MustCompile(`(?i)\b(?:i cannot|i can't|under nda|no access to)\s+([^.;,\n]+)`), 1},
	{"name", regexp.MustCompile(`\bmy name is\s+([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*)`), 1},
	{"contact_preference", regexp.MustCompile(`(?i)\bprefer (?:to be contacted )?via\s+(email|whatsapp|phone|call)\b`), 1},
}

// Extract returns at most one candidate per category for the turn.
func (HeuristicPolicy) Extract(message string) []Candidate {
	if message == "" {
		return nil
	}
	var out []Candidate
	for _, p := range heuristicPatterns {
		m := p.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[p.group])
		if value == "" {
			continue
		}
		out = append(out, Candidate{
			Type:      p.factType,
			Value:     value,
			Singleton: singletonTypes[p.factType],
		})
	}
	return out
}

// DisabledPolicy never promotes. Used when promotion is switched off in
// configuration.
type DisabledPolicy struct{}

// Extract always returns nil.
func (DisabledPolicy) Extract(string) []Candidate { return nil }
