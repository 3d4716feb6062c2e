package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opencustody/walletsync/internal/validation"
)

func TestXfpRule(t *testing.T) {
	testCases := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{
			name:  "lowercase hex",
			value: "aabbccdd",
		},
		{
			name:  "uppercase hex",
			value: "AABBCCDD",
		},
		{
			name:    "too short",
			value:   "aabbccd",
			wantErr: true,
		},
		{
			name:    "too long",
			value:   "aabbccdd0",
			wantErr: true,
		},
		{
			name:    "not hex",
			value:   "aabbccgg",
			wantErr: true,
		},
		{
			name:    "empty",
			value:   "",
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validation.Validate.Var(tc.value, "xfp")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDerivationPathRule(t *testing.T) {
	testCases := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{
			name:  "hardened apostrophe",
			value: "m/48'/0'/0'/2'",
		},
		{
			name:  "hardened h suffix",
			value: "m/48h/0h/0h/2h",
		},
		{
			name:  "unhardened",
			value: "m/84/0/0",
		},
		{
			name:  "bare master",
			value: "m",
		},
		{
			name:    "missing m prefix",
			value:   "48'/0'/0'/2'",
			wantErr: true,
		},
		{
			name:    "trailing slash",
			value:   "m/48'/",
			wantErr: true,
		},
		{
			name:    "negative index",
			value:   "m/-1",
			wantErr: true,
		},
		{
			name:    "empty",
			value:   "",
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validation.Validate.Var(tc.value, "derivation_path")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
