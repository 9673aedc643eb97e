package orchestrator

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/memory"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/types"
)

// singletonOverlayTypes are long-term fact types that override the stored
// profile when present. The most recently seen fact wins, so a correction
// like "actually, I moved to Lisbon" takes effect without a profile write.
var singletonOverlayTypes = []string{"name", "location", "locale", "timezone", "persona", "tone"}

// resolvedIdentity is the effective view of the user after overlaying
// singleton long-term facts on top of the stored profile.
type resolvedIdentity struct {
	Persona string
	Locale  string
	Name    string
	Profile map[string]string
}

func resolveIdentity(profile map[string]string, facts []memory.Fact) resolvedIdentity {
	merged := make(map[string]string, len(profile))
	for k, v := range profile {
		merged[k] = v
	}

	// Facts arrive ranked; walk them once and keep the highest-ranked value
	// per singleton type.
	seen := make(map[string]bool, len(singletonOverlayTypes))
	for _, f := range facts {
		for _, t := range singletonOverlayTypes {
			if f.Type == t && !seen[t] {
				merged[t] = f.Value
				seen[t] = true
			}
		}
	}

	persona := strings.ToLower(merged["persona"])
	if persona == "" {
		persona = strings.ToLower(merged["mode"])
	}
	return resolvedIdentity{
		Persona: persona,
		Locale:  merged["locale"],
		Name:    merged["name"],
		Profile: merged,
	}
}

// contextSignature binds a cache entry to the identity fields that change
// the wording of a personalized answer. Two users with the same persona,
// locale, and name can safely share entries; anyone else cannot.
func contextSignature(id resolvedIdentity) string {
	h := sha1.Sum([]byte("persona=" + id.Persona + ";locale=" + id.Locale + ";name=" + id.Name))
	return hex.EncodeToString(h[:])[:12]
}

// sensitivePatterns match queries whose answers depend on the asker rather
// than the knowledge base. Caching those would leak one user's context into
// another's answer, so the cache is bypassed entirely.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name\b`),
	regexp.MustCompile(`(?i)\bwho am i\b`),
	regexp.MustCompile(`(?i)\bwhere (do|did) i live\b`),
	regexp.MustCompile(`(?i)\bwhat('?s| is) my\b`),
	regexp.MustCompile(`(?i)\bremember\b.*\b(me|my)\b`),
	regexp.MustCompile(`(?i)\babout me\b`),
	regexp.MustCompile(`(?i)\b(actually|correction)[, ].*\b(i|my)\b`),
	regexp.MustCompile(`(?i)\bi (moved|now live|relocated)\b`),
}

func isSensitiveQuery(q string) bool {
	for _, re := range sensitivePatterns {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

// buildContextBlocks renders the personalization context handed to the
// cheap-tier call. Block order is stable so prompts stay reproducible.
func buildContextBlocks(id resolvedIdentity, facts []memory.Fact, recent []types.ChatMessage, route string, chunks []types.RetrievedChunk) string {
	var b strings.Builder

	b.WriteString("[USER PROFILE]\n")
	if len(id.Profile) == 0 {
		b.WriteString("(none)\n")
	} else {
		keys := make([]string, 0, len(id.Profile))
		for k := range id.Profile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, id.Profile[k])
		}
	}

	b.WriteString("\n[LONG-TERM FACTS]\n")
	if len(facts) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s: %s (seen %dx)\n", f.Type, f.Value, f.Count)
		}
	}

	b.WriteString("\n[RECENT MESSAGES]\n")
	if len(recent) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	fmt.Fprintf(&b, "\n[SEMANTIC ROUTE]\n%s\n", route)

	b.WriteString("\n[KNOWLEDGE BASE]\n")
	if len(chunks) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, c := range chunks {
			fmt.Fprintf(&b, "- (%s#%d) %s\n", c.SourceDocID, c.ChunkIndex, c.Text)
		}
	}

	return b.String()
}

// buildGenericContext renders the retrieval-only context for the premium
// call. It must not mention the user: the resulting answer is cached and
// may be served verbatim to someone else.
func buildGenericContext(chunks []types.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("[KNOWLEDGE BASE]\n")
	if len(chunks) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, c := range chunks {
			fmt.Fprintf(&b, "- (%s#%d) %s\n", c.SourceDocID, c.ChunkIndex, c.Text)
		}
	}
	return b.String()
}
