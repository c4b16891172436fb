package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountRef_AttributesAlignWithColumns(t *testing.T) {
	ref := AccountRef{
		AccountID:       "001A",
		AccountName:     "Acme Corp",
		Tier:            "Gold",
		ParentAccountID: "001P",
		ParentAccount:   "Acme Holdings",
		AccountOwner:    "Owner",
		BDAOwner:        "BDA",
		CSOwner:         "CS",
	}
	attrs := ref.Attributes()
	assert.Len(t, attrs, len(AccountColumns))
	assert.Equal(t, "001A", attrs[0])
	assert.Equal(t, "Gold", attrs[2])
	assert.Equal(t, "CS", attrs[len(attrs)-1])
}

func TestFlagCounts_Add(t *testing.T) {
	c := FlagCounts{Total: 1, HandlerName: 1}
	c.Add(FlagCounts{Total: 2, HandlerName: 1, ContactEmail: 1, OperatorEmail: 1})

	assert.Equal(t, FlagCounts{Total: 3, HandlerName: 2, ContactEmail: 1, OperatorEmail: 1}, c)
}

func TestFlagCounts_ByFlag(t *testing.T) {
	c := FlagCounts{
		HandlerName:   1,
		OwnerName:     2,
		OperatorName:  3,
		ContactEmail:  4,
		OwnerEmail:    5,
		OperatorEmail: 6,
	}
	for i, f := range Flags {
		assert.Equal(t, int64(i+1), c.ByFlag(f), string(f))
	}
	assert.Zero(t, c.ByFlag(Flag("unknown")))
}
