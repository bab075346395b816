package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	blob, err := EncryptKey(key, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Equals(got.PublicKey()))

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptRejectsBadInput(t *testing.T) {
	_, err := EncryptKey(solana.NewWallet().PrivateKey, "")
	assert.Error(t, err)
	_, err = EncryptKey(solana.PrivateKey{1, 2, 3}, "pw")
	assert.Error(t, err)
}

func TestLoadKeySources(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	dir := t.TempDir()

	got, err := LoadKey(KeyConfig{RawPrivateKey: key.String()})
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Equals(got.PublicKey()))

	blob, err := EncryptKey(key, "pw")
	require.NoError(t, err)
	encPath := filepath.Join(dir, "wallet.enc.json")
	require.NoError(t, os.WriteFile(encPath, blob, 0o600))
	got, err = LoadKey(KeyConfig{EncryptedKeyPath: encPath, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Equals(got.PublicKey()))

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)
	kgPath := filepath.Join(dir, "wallet.json")
	require.NoError(t, os.WriteFile(kgPath, raw, 0o600))
	got, err = LoadKey(KeyConfig{KeygenPath: kgPath})
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Equals(got.PublicKey()))

	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
	_, err = LoadKey(KeyConfig{RawPrivateKey: "0OIl"})
	assert.Error(t, err)
}

func TestGenerateKeygenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	key, err := GenerateKeygenFile(path)
	require.NoError(t, err)

	loaded, err := LoadKey(KeyConfig{KeygenPath: path})
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Equals(loaded.PublicKey()))

	_, err = GenerateKeygenFile(path)
	assert.Error(t, err)
}

func TestPayloadSigner(t *testing.T) {
	s := NewPayloadSigner("shh")
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	body := []byte(`{"text":"hi"}`)
	h := s.Headers(body)
	assert.Equal(t, "1700000000", h[TimestampHeader])
	assert.True(t, s.Verify(h[TimestampHeader], body, h[SignatureHeader]))
	assert.False(t, s.Verify(h[TimestampHeader], []byte(`{"text":"bye"}`), h[SignatureHeader]))
	assert.False(t, s.Verify("1", body, h[SignatureHeader]))
	assert.False(t, s.Verify(h[TimestampHeader], body, "zz"))
	assert.NotContains(t, s.String(), "shh")
}
