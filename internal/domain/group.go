package domain

// BeneficiaryGroup is a per-person rollup of receipts whose recipient-name
// variants were clustered as the same physical person. Groups are computed on
// demand and never persisted; they form a strict partition of the input set.
type BeneficiaryGroup struct {
	DisplayName   string   `json:"display_name"`
	TotalAmount   float64  `json:"total_amount"`
	TotalFees     float64  `json:"total_fees"`
	TransferCount int      `json:"transfer_count"`
	Variants      []string `json:"variants"`
}
