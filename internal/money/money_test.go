package money_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"party_radar/internal/money"
)

func TestParse_Lenient(t *testing.T) {
	cases := []struct {
		in   string
		want money.Cents
		ok   bool
	}{
		{"$10.00", 1000, true},
		{"10", 1000, true},
		{"1,234.50", 123450, true},
		{" 3.335 ", 334, true},
		{"-2.50", -250, true},
		{"(4.00)", -400, true},
		{"USD 7.1", 710, true},
		{"", 0, false},
		{"free", 0, false},
		{"$", 0, false},
	}
	for _, tc := range cases {
		got, ok := money.Parse(tc.in)
		assert.Equal(t, tc.ok, ok, "ok for %q", tc.in)
		assert.Equal(t, tc.want, got, "value for %q", tc.in)
	}
}

func TestParseQuantity_DefaultsToOne(t *testing.T) {
	for in, want := range map[string]int{"2": 2, "3x": 3, "x4": 4, "2.0": 2, "": 1, "abc": 1, "0": 1, "-3": 1, "1.5": 1} {
		got, _ := money.ParseQuantity(in)
		assert.Equal(t, want, got, "quantity for %q", in)
	}
}

func TestMulRate_RoundsToCent(t *testing.T) {
	assert.Equal(t, money.Cents(86), money.Cents(1000).MulRate(0.086))
	assert.Equal(t, money.Cents(1), money.Cents(5).MulRate(0.1)) // 0.5 rounds away from zero
	assert.Equal(t, money.Cents(0), money.Cents(1000).MulRate(0))
}

func TestDivAndRate(t *testing.T) {
	assert.Equal(t, money.Cents(333), money.Cents(1000).Div(3))
	assert.Equal(t, money.Cents(0), money.Cents(1000).Div(0))
	assert.InDelta(t, 0.1, money.Cents(1000).Rate(10000), 1e-9)
	assert.Equal(t, 0.0, money.Cents(5).Rate(0))
}

func TestJSON_TwoDecimals(t *testing.T) {
	b, err := json.Marshal(struct {
		A money.Cents `json:"a"`
	}{A: 2000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":20.00}`, string(b))
	assert.Contains(t, string(b), "20.00")

	var v struct {
		A money.Cents `json:"a"`
		B money.Cents `json:"b"`
		C money.Cents `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"$10.00","b":2.5,"c":"n/a"}`), &v))
	assert.Equal(t, money.Cents(1000), v.A)
	assert.Equal(t, money.Cents(250), v.B)
	assert.Equal(t, money.Cents(0), v.C)
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, money.Cents(1999), money.FromFloat(19.99))
	assert.Equal(t, "19.99", money.FromFloat(19.99).String())
	assert.InDelta(t, 19.99, money.Cents(1999).Float(), 1e-9)
}
