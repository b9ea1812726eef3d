package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"?!...", ""},
		{"Hi, what are the specs of Smartphone Y?", "Hi what are the specs of Smartphone Y"},
		{"  price\t\tof\nlaptop   pro ", "price of laptop pro"},
		{"a - b", "a b"},
		{"snake_case stays", "snake_case stays"},
		{"Café déjà vu!", "Café déjà vu"},
		{"1-800-555-TECH", "1800555TECH"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"hello !",
		"  What is   your return policy?? ",
		"see - you",
		"email: support@gadgetech.com",
		" non breaking ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
