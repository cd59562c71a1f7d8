package browser

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"golang.org/x/crypto/pbkdf2"
)

// readDesktopAppCookie extracts a cookie from the Claude desktop app's
// Chromium cookie database. The DB is copied first because Chromium keeps
// it locked while the app runs.
func readDesktopAppCookie(domain, name string) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("desktop app cookie extraction only supported on macOS")
	}

	encKey, err := desktopAppEncryptionKey()
	if err != nil {
		return "", fmt.Errorf("getting encryption key: %w", err)
	}

	cookiesPath := filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Claude", "Cookies")
	if _, err := os.Stat(cookiesPath); os.IsNotExist(err) {
		return "", fmt.Errorf("desktop app cookie DB not found: %s", cookiesPath)
	}

	tmpFile, err := os.CreateTemp("", "claude-cookies-*.db")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	srcData, err := os.ReadFile(cookiesPath)
	if err != nil {
		return "", fmt.Errorf("reading cookie DB: %w", err)
	}
	if err := os.WriteFile(tmpPath, srcData, 0o600); err != nil {
		return "", fmt.Errorf("writing temp cookie DB: %w", err)
	}

	db, err := sql.Open("sqlite3", tmpPath+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("opening cookie DB: %w", err)
	}
	defer db.Close()

	row := db.QueryRow(
		"SELECT encrypted_value FROM cookies WHERE host_key LIKE ? AND name = ? LIMIT 1",
		"%"+domain+"%", name,
	)
	var encValue []byte
	if err := row.Scan(&encValue); err != nil {
		return "", fmt.Errorf("cookie %s not found in desktop app DB: %w", name, err)
	}

	value, err := decryptChromiumCookie(encValue, encKey)
	if err != nil {
		return "", fmt.Errorf("decrypting cookie: %w", err)
	}
	return value, nil
}

func desktopAppEncryptionKey() ([]byte, error) {
	cmd := exec.Command("security", "find-generic-password", "-w", "-s", "Claude Safe Storage", "-a", "Claude")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("keychain lookup failed (is the Claude desktop app installed?): %w", err)
	}
	password := strings.TrimSpace(string(out))

	key := pbkdf2.Key([]byte(password), []byte("saltysalt"), 1003, 16, sha1.New)
	return key, nil
}

// decryptChromiumCookie handles Chromium's v10 AES-CBC cookie encryption.
func decryptChromiumCookie(encrypted []byte, key []byte) (string, error) {
	if len(encrypted) < 3 {
		return "", fmt.Errorf("encrypted value too short")
	}

	prefix := string(encrypted[:3])
	if prefix != "v10" {
		return "", fmt.Errorf("unexpected cookie encryption version: %q", prefix)
	}
	ciphertext := encrypted[3:]

	if len(ciphertext) == 0 {
		return "", fmt.Errorf("empty ciphertext after prefix")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating AES cipher: %w", err)
	}

	iv := []byte("                ") // 16 spaces

	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext not aligned to block size")
	}

	mode := cipher.NewCBCDecrypter(block, iv)
	plaintext := make([]byte, len(ciphertext))
	mode.CryptBlocks(plaintext, ciphertext)

	if len(plaintext) == 0 {
		return "", fmt.Errorf("empty plaintext")
	}
	padLen := int(plaintext[len(plaintext)-1])
	if padLen > aes.BlockSize || padLen > len(plaintext) || padLen == 0 {
		return "", fmt.Errorf("invalid PKCS7 padding")
	}
	plaintext = plaintext[:len(plaintext)-padLen]

	const chromiumPrefixLen = 32
	if len(plaintext) <= chromiumPrefixLen {
		return "", fmt.Errorf("decrypted value too short after padding removal (len=%d)", len(plaintext))
	}
	plaintext = plaintext[chromiumPrefixLen:]

	return string(plaintext), nil
}
