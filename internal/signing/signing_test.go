package signing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignAndValidate(t *testing.T) {
	signer := NewSigner([]byte("test-secret"))
	expires := time.Now().Add(5 * time.Minute).Unix()
	expStr := fmt.Sprint(expires)

	t.Run("valid signature passes", func(t *testing.T) {
		sig := signer.Sign("image-123", expires)
		assert.True(t, signer.Validate("image-123", expStr, sig))
	})

	t.Run("tampered image id fails", func(t *testing.T) {
		sig := signer.Sign("image-123", expires)
		assert.False(t, signer.Validate("image-456", expStr, sig))
	})

	t.Run("tampered expiry fails", func(t *testing.T) {
		sig := signer.Sign("image-123", expires)
		assert.False(t, signer.Validate("image-123", fmt.Sprint(expires+60), sig))
	})

	t.Run("expired signature fails", func(t *testing.T) {
		past := time.Now().Add(-time.Minute).Unix()
		sig := signer.Sign("image-123", past)
		assert.False(t, signer.Validate("image-123", fmt.Sprint(past), sig))
	})

	t.Run("garbage expiry fails", func(t *testing.T) {
		sig := signer.Sign("image-123", expires)
		assert.False(t, signer.Validate("image-123", "soon", sig))
	})

	t.Run("different secrets disagree", func(t *testing.T) {
		other := NewSigner([]byte("other-secret"))
		sig := signer.Sign("image-123", expires)
		assert.False(t, other.Validate("image-123", expStr, sig))
	})
}
