package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMac_AcceptsSeparatorStyles(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"AA:BB:CC:DD:EE:FF",
		"aabb-ccdd-eeff",
		"AABBCCDDEEFF",
		"aa-bb-cc-dd-ee-ff",
		"aabb.ccdd.eeff",
		" Aa:bB-cc dd:EE-ff ",
	}

	for _, in := range inputs {
		got, err := Mac(in)
		require.NoError(t, err, in)
		assert.Equal(t, "aabbccddeeff", got, in)
	}
}

func TestMac_RejectsWrongDigitCount(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"aabbccddeef",
		"aa:bb:cc:dd:ee:ff:00",
		"zz:zz:zz:zz:zz:zz",
		"not a mac",
	}

	for _, in := range inputs {
		_, err := Mac(in)
		assert.ErrorIs(t, err, ErrInvalidMac, in)
		assert.False(t, IsValidMac(in), in)
	}
}

func TestMacDigits_DropsNonHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "aabb", MacDigits("AA:bb"))
	assert.Equal(t, "", MacDigits("xyz-:"))
	assert.Equal(t, "0a", MacDigits("0gA"))
}

func TestIsValidPhone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{"12345", false},
		{"123456", true},
		{"  123456  ", true},
		{"+1 (555) 010-0000", true},
		{"12345678901234567890", true},
		{"123456789012345678901", false},
		{"      ", false},
		{"ext. 12", true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsValidPhone(tc.in), tc.in)
	}
}

func TestNameAndPhoneTrim(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice", Name("  alice\t"))
	assert.Equal(t, "+44 20 7946 0000", Phone(" +44 20 7946 0000 "))
}
