package browser

import (
	"crypto/aes"
	"crypto/cipher"
	"strings"
	"testing"
)

func encryptChromiumValue(t *testing.T, key []byte, value string) []byte {
	t.Helper()

	// Chromium prepends a 32-byte hash of the host key before encrypting.
	plaintext := append(make([]byte, 32), []byte(value)...)

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	for i := 0; i < padLen; i++ {
		plaintext = append(plaintext, byte(padLen))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	iv := []byte("                ")
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	return append([]byte("v10"), ciphertext...)
}

func TestDecryptChromiumCookie_RoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	enc := encryptChromiumValue(t, key, "sk-ant-session-value")

	got, err := decryptChromiumCookie(enc, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "sk-ant-session-value" {
		t.Errorf("got %q, want %q", got, "sk-ant-session-value")
	}
}

func TestDecryptChromiumCookie_Malformed(t *testing.T) {
	key := []byte("0123456789abcdef")

	cases := map[string][]byte{
		"too short":         []byte("v1"),
		"wrong version":     []byte("v20abcdefghijklmnop"),
		"empty ciphertext":  []byte("v10"),
		"unaligned payload": append([]byte("v10"), []byte("abc")...),
	}
	for name, enc := range cases {
		if _, err := decryptChromiumCookie(enc, key); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecryptChromiumCookie_BadPadding(t *testing.T) {
	key := []byte("0123456789abcdef")
	block, _ := aes.NewCipher(key)
	iv := []byte("                ")

	// Garbage plaintext produces garbage padding after decryption.
	junk := make([]byte, aes.BlockSize)
	ciphertext := make([]byte, len(junk))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, junk)

	if _, err := decryptChromiumCookie(append([]byte("v10"), ciphertext...), key); err == nil {
		t.Error("expected error for zero-valued padding byte")
	}
}

func TestDecryptChromiumCookie_ValueTooShort(t *testing.T) {
	key := []byte("0123456789abcdef")

	// A value whose plaintext fits entirely inside the 32-byte prefix.
	plaintext := make([]byte, 16)
	for i := range plaintext {
		plaintext[i] = byte(16)
	}
	block, _ := aes.NewCipher(key)
	iv := []byte("                ")
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	_, err := decryptChromiumCookie(append([]byte("v10"), ciphertext...), key)
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Errorf("expected too-short error, got %v", err)
	}
}
