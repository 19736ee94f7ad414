package domain

import "time"

// Child is one declared dependent child.
type Child struct {
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// FamilyDeclaration is the set of relatives a household declared as entitled
// beneficiaries, extracted once from an identity document. At most one father
// and one mother; the children list may be empty. The declaration is replaced
// wholesale, never incrementally edited.
type FamilyDeclaration struct {
	HouseholdID string    `json:"household_id"`
	FatherName  string    `json:"father_name,omitempty"`
	MotherName  string    `json:"mother_name,omitempty"`
	Children    []Child   `json:"children"`
	DeclaredAt  time.Time `json:"declared_at"`
}

// IsEmpty reports whether no relative was declared at all.
func (f *FamilyDeclaration) IsEmpty() bool {
	return f == nil || (f.FatherName == "" && f.MotherName == "" && len(f.Children) == 0)
}
