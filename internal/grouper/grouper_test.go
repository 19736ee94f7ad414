package grouper_test

import (
	"testing"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/grouper"
)

func receipt(receiver string, amount, fee float64) *domain.Receipt {
	r := &domain.Receipt{ReceiverName: receiver}
	if amount != 0 {
		r.AmountEUR = &amount
	}
	if fee != 0 {
		r.FeeAmount = &fee
	}
	return r
}

func TestGroup_HonorificPrefixMerges(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("Hadja Oumou Bah", 100, 0),
		receipt("Oumou Bah", 50, 0),
	})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.DisplayName != "Oumou Bah" {
		t.Errorf("expected canonical name 'Oumou Bah', got '%s'", g.DisplayName)
	}
	if g.TotalAmount != 150 {
		t.Errorf("expected total 150, got %v", g.TotalAmount)
	}
	if g.TransferCount != 2 {
		t.Errorf("expected 2 transfers, got %d", g.TransferCount)
	}
	if len(g.Variants) != 2 {
		t.Errorf("expected both raw spellings as variants, got %v", g.Variants)
	}
}

func TestGroup_CaseAndWhitespaceSameBucket(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("oumou bah", 10, 0),
		receipt("  OUMOU   BAH ", 20, 0),
	})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].TotalAmount != 30 {
		t.Errorf("expected total 30, got %v", groups[0].TotalAmount)
	}
	// Both raw spellings are preserved even though they bucketed together.
	if len(groups[0].Variants) != 2 {
		t.Errorf("expected 2 raw variants, got %v", groups[0].Variants)
	}
}

func TestGroup_PartialNameContainment(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("Mamadou Aliou Barry", 200, 0),
		receipt("Aliou Barry", 100, 0),
	})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].DisplayName != "Aliou Barry" {
		t.Errorf("expected the shorter base name, got '%s'", groups[0].DisplayName)
	}
}

func TestGroup_SingleWordNeverContained(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("Barry", 10, 0),
		receipt("Aliou Barry", 20, 0),
	})

	if len(groups) != 2 {
		t.Fatalf("one-word names must not merge by containment, got %d group(s)", len(groups))
	}
}

func TestGroup_NicknameClauseStripped(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("Oumou Bah dite Mariama", 40, 0),
		receipt("Oumou Bah", 60, 0),
	})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].DisplayName != "Oumou Bah" {
		t.Errorf("expected 'Oumou Bah', got '%s'", groups[0].DisplayName)
	}
}

// A merge can enable further merges; the scan must reach the fixpoint.
func TestGroup_TransitiveMerge(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("Mamadou Aliou Barry", 10, 0),
		receipt("Hadja Aliou Barry", 20, 0),
		receipt("Aliou Barry", 30, 0),
	})

	if len(groups) != 1 {
		t.Fatalf("expected transitive closure into 1 group, got %d", len(groups))
	}
	if groups[0].TransferCount != 3 {
		t.Errorf("expected 3 transfers, got %d", groups[0].TransferCount)
	}
}

func TestGroup_SortedByDescendingTotal(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("Amadou Diallo", 50, 5),
		receipt("Oumou Bah", 300, 10),
		receipt("Fatoumata Kaba", 120, 0),
	})

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	want := []string{"Oumou Bah", "Fatoumata Kaba", "Amadou Diallo"}
	for i, name := range want {
		if groups[i].DisplayName != name {
			t.Errorf("position %d: expected '%s', got '%s'", i, name, groups[i].DisplayName)
		}
	}
}

func TestGroup_StrictPartition(t *testing.T) {
	receipts := []*domain.Receipt{
		receipt("Hadja Oumou Bah", 100, 2),
		receipt("Oumou Bah", 50, 1),
		receipt("Amadou Diallo", 75, 0),
		receipt("amadou diallo", 25, 0),
		receipt("Ibrahima Sory Conde", 10, 0),
	}

	groups := grouper.Group(receipts)

	totalCount := 0
	seen := make(map[string]bool)
	for _, g := range groups {
		totalCount += g.TransferCount
		for _, v := range g.Variants {
			if seen[v] {
				t.Errorf("variant %q appears in more than one group", v)
			}
			seen[v] = true
		}
	}
	if totalCount != len(receipts) {
		t.Errorf("groups cover %d receipts, want %d", totalCount, len(receipts))
	}
	for _, r := range receipts {
		if !seen[r.ReceiverName] {
			t.Errorf("raw name %q missing from variant lists", r.ReceiverName)
		}
	}
}

func TestGroup_UnreadableNamesGrouped(t *testing.T) {
	groups := grouper.Group([]*domain.Receipt{
		receipt("", 10, 0),
		receipt("Oumou Bah", 20, 0),
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	found := false
	for _, g := range groups {
		if g.DisplayName == "Unknown" && g.TransferCount == 1 {
			found = true
		}
	}
	if !found {
		t.Error("receipts without a readable recipient must still land in a group")
	}
}

func TestGroup_Empty(t *testing.T) {
	if groups := grouper.Group(nil); len(groups) != 0 {
		t.Errorf("expected no groups, got %v", groups)
	}
}
