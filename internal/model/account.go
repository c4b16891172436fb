// Package model defines the account-side types shared by the normalizer,
// the matching engine, and the metric assembler.
package model

// AccountRef carries the CRM attributes of an account. It travels from the
// account export through SearchTerm into every matched-facility row so the
// event views can be enriched without another lookup.
type AccountRef struct {
	AccountID       string `csv:"account_id" json:"account_id"`
	AccountName     string `csv:"account_name" json:"account_name"`
	Tier            string `csv:"tier" json:"tier,omitempty"`
	ParentAccountID string `csv:"parent_account_id" json:"parent_account_id,omitempty"`
	ParentAccount   string `csv:"parent_account" json:"parent_account,omitempty"`
	AccountOwner    string `csv:"account_owner" json:"account_owner,omitempty"`
	BDAOwner        string `csv:"bda_owner" json:"bda_owner,omitempty"`
	CSOwner         string `csv:"cs_owner" json:"cs_owner,omitempty"`
}

// SearchTerm is the canonical match key set derived from one account.
// NameTerms and EmailTerms are ';'-joined, sorted, de-duplicated lists.
type SearchTerm struct {
	AccountRef
	NameTerms  string `csv:"name_terms" json:"name_terms"`
	EmailTerms string `csv:"email_terms" json:"email_terms"`
}

// Attributes returns the account attributes in matched-table column order:
// account_id, account_name, tier, parent_account_id, parent_account,
// account_owner, bda_owner, cs_owner.
func (r AccountRef) Attributes() []string {
	return []string{
		r.AccountID,
		r.AccountName,
		r.Tier,
		r.ParentAccountID,
		r.ParentAccount,
		r.AccountOwner,
		r.BDAOwner,
		r.CSOwner,
	}
}

// AccountColumns lists the account attribute columns, aligned with Attributes.
var AccountColumns = []string{
	"account_id",
	"account_name",
	"tier",
	"parent_account_id",
	"parent_account",
	"account_owner",
	"bda_owner",
	"cs_owner",
}
