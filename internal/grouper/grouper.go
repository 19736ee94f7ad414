// Package grouper clusters recipient-name variants that refer to the same
// physical person, for per-beneficiary reporting. Two passes: an exact bucket
// pass on the casing-fixed name, then a repeat-until-fixpoint merge pass on
// base names with honorific prefixes and "known-as" clauses stripped.
package grouper

import (
	"sort"
	"strings"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/match"
)

// unknownName labels receipts whose recipient OCR extraction failed entirely.
// They still belong to exactly one group so the output stays a partition.
const unknownName = "Unknown"

// honorifics are leading title tokens that don't distinguish people.
var honorifics = map[string]bool{
	"hadja":    true,
	"hadj":     true,
	"elhadj":   true,
	"el":       true,
	"alhaji":   true,
	"madame":   true,
	"mme":      true,
	"monsieur": true,
	"mr":       true,
	"m":        true,
	"mlle":     true,
	"mrs":      true,
	"miss":     true,
	"dr":       true,
}

// aliasMarkers start a trailing nickname clause ("Oumou Bah dite Mariama").
var aliasMarkers = map[string]bool{
	"dit":   true,
	"dite":  true,
	"alias": true,
	"aka":   true,
}

// bucket is one group-in-progress in the merge arena.
type bucket struct {
	display     string         // full representative name, casing fixed
	baseDisplay []string       // stripped base name words, casing fixed
	baseKey     []string       // stripped base name words, comparison form
	variants    map[string]int // distinct raw spellings seen -> occurrences
	amount      float64
	fees        float64
	count       int
}

// Group partitions receipts by beneficiary and aggregates totals per person.
// Every receipt lands in exactly one group; the union of all variant lists is
// the set of distinct raw recipient names seen in the input. Groups are
// sorted by descending (principal + fees).
func Group(receipts []*domain.Receipt) []domain.BeneficiaryGroup {
	var buckets []*bucket
	index := make(map[string]int)

	// Pass 1: exact buckets on the casing/whitespace-fixed name.
	for _, r := range receipts {
		key := match.NormalizeDisplay(r.ReceiverName)
		i, ok := index[key]
		if !ok {
			b := &bucket{display: key, variants: make(map[string]int)}
			if key == "" {
				b.display = unknownName
			} else {
				b.baseDisplay, b.baseKey = stripTitles(key)
			}
			buckets = append(buckets, b)
			i = len(buckets) - 1
			index[key] = i
		}
		b := buckets[i]
		if r.ReceiverName != "" {
			b.variants[r.ReceiverName]++
		}
		b.amount += r.DeductibleAmount()
		b.fees += r.DeductibleFee()
		b.count++
	}

	// Pass 2: merge until no pair qualifies. A merge can create new eligible
	// pairs, so the scan restarts after every merge.
	for {
		merged := false
	scan:
		for i := 0; i < len(buckets); i++ {
			for j := i + 1; j < len(buckets); j++ {
				if mergeable(buckets[i], buckets[j]) {
					buckets[i] = merge(buckets[i], buckets[j])
					buckets = append(buckets[:j], buckets[j+1:]...)
					merged = true
					break scan
				}
			}
		}
		if !merged {
			break
		}
	}

	// Pass 3: totals, deterministic ordering.
	groups := make([]domain.BeneficiaryGroup, 0, len(buckets))
	for _, b := range buckets {
		variants := make([]string, 0, len(b.variants))
		for v := range b.variants {
			variants = append(variants, v)
		}
		sort.Strings(variants)
		groups = append(groups, domain.BeneficiaryGroup{
			DisplayName:   b.display,
			TotalAmount:   b.amount,
			TotalFees:     b.fees,
			TransferCount: b.count,
			Variants:      variants,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		ti := groups[i].TotalAmount + groups[i].TotalFees
		tj := groups[j].TotalAmount + groups[j].TotalFees
		if ti != tj {
			return ti > tj
		}
		return groups[i].DisplayName < groups[j].DisplayName
	})
	return groups
}

// stripTitles removes leading honorific tokens and a trailing "known-as"
// clause, returning the base name in display and comparison forms.
func stripTitles(display string) (baseDisplay, baseKey []string) {
	words := strings.Fields(display)

	for len(words) > 1 && honorifics[strings.TrimRight(match.Normalize(words[0]), ".")] {
		words = words[1:]
	}
	for i, w := range words {
		if i > 0 && aliasMarkers[match.Normalize(w)] {
			words = words[:i]
			break
		}
	}

	baseDisplay = words
	baseKey = make([]string, len(words))
	for i, w := range words {
		baseKey[i] = match.Normalize(w)
	}
	return baseDisplay, baseKey
}

// mergeable reports whether two buckets name the same person: equal base
// names, or one base contained contiguously and in order inside the other.
// One-word bases never qualify for containment — too easy to collide.
func mergeable(a, b *bucket) bool {
	if len(a.baseKey) == 0 || len(b.baseKey) == 0 {
		return false
	}
	if sameWords(a.baseKey, b.baseKey) {
		return true
	}
	short, long := a.baseKey, b.baseKey
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < 2 {
		return false
	}
	return containsContiguous(long, short)
}

func sameWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsContiguous(long, short []string) bool {
	for start := 0; start+len(short) <= len(long); start++ {
		if sameWords(long[start:start+len(short)], short) {
			return true
		}
	}
	return false
}

// merge folds two buckets into one. The canonical name is the stripped base
// name: the shared base when equal, otherwise the shorter one (the bare name
// without an appended variant); on equal word counts the bucket seen more
// often wins.
func merge(a, b *bucket) *bucket {
	winner, loser := a, b
	if !sameWords(a.baseKey, b.baseKey) {
		switch {
		case len(b.baseKey) < len(a.baseKey):
			winner, loser = b, a
		case len(b.baseKey) == len(a.baseKey) && b.count > a.count:
			winner, loser = b, a
		}
	}

	winner.display = strings.Join(winner.baseDisplay, " ")
	for v, n := range loser.variants {
		winner.variants[v] += n
	}
	winner.amount += loser.amount
	winner.fees += loser.fees
	winner.count += loser.count
	return winner
}
