package referral

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGCMCipher(t *testing.T) {
	c, err := NewGCMCipher([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := c.Encrypt([]byte("snapshot"))
	if err != nil {
		t.Fatal(err)
	}
	assert.NotContains(t, string(sealed), "snapshot")

	opened, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "snapshot", string(opened))

	sealed[len(sealed)-1] ^= 0xff
	_, err = c.Decrypt(sealed)
	assert.Error(t, err)

	_, err = c.Decrypt([]byte("x"))
	assert.Error(t, err)

	_, err = NewGCMCipher([]byte("short"))
	assert.Error(t, err)
}

func TestGenerateSnapshotKey(t *testing.T) {
	a, b := GenerateSnapshotKey(), GenerateSnapshotKey()
	assert.NotEqual(t, a, b)

	key, err := base64.StdEncoding.DecodeString(a)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, key, 32)
	_, err = NewGCMCipher(key)
	assert.NoError(t, err)
}
