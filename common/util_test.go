package common_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/common"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		plain    string
		password string
	}{
		{
			name:     "short string",
			plain:    "hello",
			password: "helloworld",
		},
		{
			name:     "empty string",
			plain:    "",
			password: "helloworld",
		},
		{
			name:     "block aligned",
			plain:    "0123456789abcdef",
			password: "s3cret",
		},
		{
			name:     "descriptor payload",
			plain:    "BSMS 1.0\nwsh(sortedmulti(2,a,b))\n/0/*,/1/*\n",
			password: "pass phrase with spaces",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enc, err := common.Encrypt(tc.plain, tc.password)
			require.NoError(t, err)
			assert.NotEqual(t, tc.plain, enc)

			dec, err := common.Decrypt(enc, tc.password)
			require.NoError(t, err)
			assert.Equal(t, tc.plain, dec)
		})
	}
}

func TestEncryptIsSalted(t *testing.T) {
	a, err := common.Encrypt("same input", "same password")
	require.NoError(t, err)
	b, err := common.Encrypt("same input", "same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "a fresh salt and iv must be drawn per call")
}

func TestDecryptWrongPassword(t *testing.T) {
	enc, err := common.Encrypt("top secret", "password-one")
	require.NoError(t, err)

	dec, err := common.Decrypt(enc, "password-two")
	if err == nil {
		assert.NotEqual(t, "top secret", dec)
	}
}

func TestDecryptBadInput(t *testing.T) {
	_, err := common.Decrypt("not base64!!", "pw")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("tooshort"))
	_, err = common.Decrypt(short, "pw")
	assert.ErrorContains(t, err, "ciphertext too short")

	ragged := base64.StdEncoding.EncodeToString(make([]byte, 16+5))
	_, err = common.Decrypt(ragged, "pw")
	assert.ErrorContains(t, err, "block size")
}
