package ledger

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		code    string
		want    Tier
		wantErr bool
	}{
		{"", Uncleared, false},
		{" ", Uncleared, false},
		{"C", Cleared, false},
		{"R", Reconciled, false},
		{"c", Uncleared, true},
		{"X", Uncleared, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseTier(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFieldValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierMembership(t *testing.T) {
	assert.False(t, Uncleared.counted())
	assert.True(t, Cleared.counted())
	assert.True(t, Reconciled.counted())
	assert.False(t, Cleared.settled())
	assert.True(t, Reconciled.settled())
	assert.True(t, Uncleared < Cleared && Cleared < Reconciled)
}

func TestTierJSON(t *testing.T) {
	b, err := json.Marshal(Reconciled)
	require.NoError(t, err)
	assert.JSONEq(t, `"R"`, string(b))

	var tier Tier
	require.NoError(t, json.Unmarshal([]byte(`"C"`), &tier))
	assert.Equal(t, Cleared, tier)

	err = json.Unmarshal([]byte(`"Z"`), &tier)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

func TestAccountIDFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Checking", "acct_checking"},
		{"Joint Savings", "acct_jointsavings"},
		{"Bob's Visa #2", "acct_bobsvisa2"},
		{"  Spaced\tOut  ", "acct_spacedout"},
		{"Ünïcode Bank", "acct_ünïcodebank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AccountIDFromName(tt.name))
		})
	}
}

func TestResolveTarget(t *testing.T) {
	acct := ResolveTarget("acct_savings")
	id, ok := acct.AccountID()
	assert.True(t, ok)
	assert.Equal(t, "acct_savings", id)
	assert.True(t, acct.IsAccount())
	assert.Equal(t, AccountRef("acct_savings"), acct)

	cat := ResolveTarget("groceries")
	_, ok = cat.AccountID()
	assert.False(t, ok)
	assert.Equal(t, "groceries", cat.ID())

	var zero Target
	assert.Equal(t, CategoryRef(""), zero)
}

func TestTargetJSON(t *testing.T) {
	var tr Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"cat_or_acct_id":"acct_visa"}`), &tr))
	assert.True(t, tr.Target.IsAccount())

	b, err := json.Marshal(tr.Target)
	require.NoError(t, err)
	assert.JSONEq(t, `"acct_visa"`, string(b))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2013-07-04")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2013, time.July, 4), d)
	assert.Equal(t, "2013-07-04", d.String())

	_, err = ParseDate("07/04/2013")
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "date", fe.Field)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2013-07-04T00:00:00Z"))
	assert.Equal(t, "2013-07-04", d.String())

	require.NoError(t, d.Scan([]byte("2014-01-31")))
	assert.Equal(t, "2014-01-31", d.String())

	require.NoError(t, d.Scan(time.Date(2015, time.March, 2, 17, 30, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2015, time.March, 2), d)

	assert.Error(t, d.Scan(42))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" -52.085 ")
	require.NoError(t, err)
	assert.Equal(t, "-52.09", d.StringFixed(2))

	_, err = ParseAmount("ten")
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	d, err = ParseAmount("-999999999999.99")
	require.NoError(t, err)
	assert.Equal(t, "-999999999999.99", d.StringFixed(2))

	for _, in := range []string{
		"1e99999999",
		"1E2",
		"1e20",
		"1000000000000",
		"-1000000000000.00",
		"999999999999.995",
		"1." + strings.Repeat("0", 40),
	} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidFieldValue, in)
	}
}

func TestTransactionJSON(t *testing.T) {
	tr := &Transaction{
		ID:         "t1",
		Date:       NewDate(2013, time.July, 4),
		Payee:      "Grocer",
		Amount:     dec("-52.08"),
		Reconciled: Cleared,
		Target:     CategoryRef("food"),
	}

	b, err := json.Marshal(withURI("acct_checking", tr))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "t1",
		"date": "2013-07-04",
		"type": "",
		"payee": "Grocer",
		"memo": "",
		"amount": -52.08,
		"reconciled": "C",
		"cat_or_acct_id": "food",
		"uri": "/api/transactions/acct_checking/t1"
	}`, string(b))
}
