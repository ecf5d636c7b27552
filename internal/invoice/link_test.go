package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSignAndVerify(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)

	token, err := signer.Sign("AFAK-INV-00001")
	require.NoError(t, err)

	assert.NoError(t, signer.Verify("AFAK-INV-00001", token))
	assert.ErrorIs(t, signer.Verify("AFAK-INV-00002", token), ErrInvalidLink)
	assert.ErrorIs(t, signer.Verify("AFAK-INV-00001", token+"x"), ErrInvalidLink)
	assert.ErrorIs(t, signer.Verify("AFAK-INV-00001", ""), ErrInvalidLink)

	other := NewLinkSigner("another-secret", time.Hour)
	assert.ErrorIs(t, other.Verify("AFAK-INV-00001", token), ErrInvalidLink)

	_, err = signer.Sign("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestLinkExpires(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }

	token, err := signer.Sign("AFAK-INV-00001")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(30 * time.Minute) }
	assert.NoError(t, signer.Verify("AFAK-INV-00001", token))

	signer.now = func() time.Time { return issued.Add(2 * time.Hour) }
	assert.ErrorIs(t, signer.Verify("AFAK-INV-00001", token), ErrInvalidLink)
}
