package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericCode_LengthAndCharset(t *testing.T) {
	for _, digits := range []int{4, 6, 8, 10} {
		code, err := NumericCode(digits)
		require.NoError(t, err)
		require.Len(t, code, digits)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q has non-digit", code)
		}
	}
}

func TestNumericCode_RejectsOutOfRangeLength(t *testing.T) {
	for _, digits := range []int{0, 3, 11, -1} {
		_, err := NumericCode(digits)
		assert.Error(t, err, "digits %d", digits)
	}
}

func TestNumericCode_KeepsLeadingZeros(t *testing.T) {
	// with 4 digits and enough draws a leading zero shows up quickly
	for i := 0; i < 200; i++ {
		code, err := NumericCode(4)
		require.NoError(t, err)
		if code[0] == '0' {
			return
		}
	}
	t.Fatal("no leading-zero code in 200 draws; padding is likely broken")
}

func TestHashAndEqual(t *testing.T) {
	h := Hash("123456")
	assert.Len(t, h, 64) // sha256 hex
	assert.NotEqual(t, "123456", h)

	assert.True(t, Equal(h, Hash("123456")))
	assert.False(t, Equal(h, Hash("123457")))
}

func TestEqual_MalformedHex(t *testing.T) {
	assert.False(t, Equal("not-hex", Hash("123456")))
	assert.False(t, Equal(Hash("123456"), "not-hex"))
}
