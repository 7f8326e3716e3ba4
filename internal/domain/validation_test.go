package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPAN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ABCDE1234F", true},
		{"abcde1234f", false},
		{"ABCDE1234", false},
		{"ABCD12345F", false},
		{"ABCDE1234FG", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPAN(tt.in))
		})
	}
}

func TestIsAadhaar(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123456789012", true},
		{"1234 5678 9012", true},
		{" 1234\t5678 9012 ", true},
		{"12345678901", false},
		{"1234567890123", false},
		{"1234 5678 90ab", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAadhaar(tt.in))
		})
	}
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("asha@example.in"))
	assert.False(t, IsEmail("asha@example"))
	assert.False(t, IsEmail("asha example@x.in"))
	assert.False(t, IsEmail("@example.in"))
}

func TestValidateField(t *testing.T) {
	assert.NoError(t, ValidateField(KeyPAN, ""))
	assert.NoError(t, ValidateField(KeyPhone, "not validated"))
	assert.NoError(t, ValidateField("account_no", "anything"))

	err := ValidateField(KeyPAN, "abcde1234f")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), MsgInvalidPAN)

	err = ValidateField(KeyAadhaar, "1234 5678")
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgInvalidAadhaar)
}

func TestProfileDetails_Normalize(t *testing.T) {
	d := ProfileDetails{
		FirstName: "  Asha ",
		PAN:       " abcde1234f ",
		Aadhaar:   "1234 5678 9012",
		Email:     " asha@example.in",
	}

	got := d.Normalize("")
	assert.Equal(t, "Asha", got.FirstName)
	assert.Equal(t, "ABCDE1234F", got.PAN)
	assert.Equal(t, "123456789012", got.Aadhaar)
	assert.Equal(t, "asha@example.in", got.Email)
	assert.NoError(t, got.Validate())
}

func TestProfileDetails_NormalizeKeepsExistingAadhaar(t *testing.T) {
	got := ProfileDetails{}.Normalize("9999 8888 7777")
	assert.Equal(t, "999988887777", got.Aadhaar)
}

func TestProfileDetails_ValidateOrder(t *testing.T) {
	d := ProfileDetails{Aadhaar: "12", PAN: "bad", Email: "bad"}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgInvalidAadhaar)

	d.Aadhaar = ""
	err = d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgInvalidPAN)

	d.PAN = ""
	err = d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgInvalidEmail)
}
