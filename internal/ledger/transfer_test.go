package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanUpdate(t *testing.T) {
	cat := CategoryRef("groceries")
	otherCat := CategoryRef("dining")
	savings := AccountRef("acct_savings")
	visa := AccountRef("acct_visa")

	tests := []struct {
		name          string
		before, after Target
		want          MirrorPlan
	}{
		{"category to category", cat, otherCat, MirrorPlan{Action: MirrorNone}},
		{"category to account", cat, savings, MirrorPlan{Action: MirrorCreate, To: "acct_savings"}},
		{"account to category", savings, cat, MirrorPlan{Action: MirrorRemove, From: "acct_savings"}},
		{"same account", savings, savings, MirrorPlan{Action: MirrorPatch, From: "acct_savings", To: "acct_savings"}},
		{"other account", savings, visa, MirrorPlan{Action: MirrorRelocate, From: "acct_savings", To: "acct_visa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanUpdate(&Transaction{Target: tt.before}, &Transaction{Target: tt.after})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMirrorOf(t *testing.T) {
	primary := &Transaction{
		ID:         "t1",
		Date:       NewDate(2013, time.July, 4),
		Type:       "xfer",
		Payee:      "Savings",
		Memo:       "rainy day",
		Amount:     dec("-100.00"),
		Reconciled: Reconciled,
		Target:     AccountRef("acct_savings"),
	}

	m := mirrorOf("acct_checking", primary)
	assert.Equal(t, "t1", m.ID)
	assert.Equal(t, "100.00", m.Amount.StringFixed(2))
	assert.Equal(t, Uncleared, m.Reconciled)
	assert.Equal(t, AccountRef("acct_checking"), m.Target)
	assert.Equal(t, "Savings", m.Payee)
	assert.Equal(t, "rainy day", m.Memo)
}

func TestMirrorActionString(t *testing.T) {
	assert.Equal(t, "relocate", MirrorRelocate.String())
	assert.Equal(t, "MirrorAction(9)", MirrorAction(9).String())
}
