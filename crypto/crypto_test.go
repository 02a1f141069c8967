package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewAESEncryptor(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError bool
	}{
		{"empty key", "", true},
		{"invalid base64", "not-valid-base64!@#$", true},
		{"wrong length", base64.StdEncoding.EncodeToString([]byte("short")), true},
		{"valid 32-byte key", testKey(t), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESEncryptor(tt.key)
			if (err != nil) != tt.wantError {
				t.Errorf("NewAESEncryptor() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}

	plaintexts := [][]byte{
		[]byte("x"),
		[]byte("an oauth refresh token value"),
		bytes.Repeat([]byte("long"), 1024),
	}
	for _, pt := range plaintexts {
		ct, err := enc.Encrypt(pt)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if bytes.Contains(ct, pt) {
			t.Error("ciphertext contains plaintext")
		}
		got, err := enc.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if !bytes.Equal(got, pt) {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(pt))
		}
	}
}

func TestEncryptRejectsEmpty(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	if _, err := enc.Encrypt(nil); err == nil {
		t.Error("Encrypt(nil) should fail")
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	ct, err := enc.Encrypt([]byte("session token"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	ct[len(ct)-1] ^= 0xFF
	if _, err := enc.Decrypt(ct); err == nil {
		t.Error("Decrypt() accepted tampered ciphertext")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	if _, err := enc.Decrypt([]byte{1, 2, 3}); err == nil {
		t.Error("Decrypt() accepted truncated ciphertext")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	enc1, _ := NewAESEncryptor(testKey(t))
	enc2, _ := NewAESEncryptor(testKey(t))
	ct, err := enc1.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := enc2.Decrypt(ct); err == nil {
		t.Error("Decrypt() with wrong key should fail")
	}
}

func TestStringHelpers(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))

	// Empty strings round-trip as empty without touching the cipher.
	if s, err := EncryptString(enc, ""); err != nil || s != "" {
		t.Errorf("EncryptString(\"\") = %q, %v", s, err)
	}
	if s, err := DecryptString(enc, ""); err != nil || s != "" {
		t.Errorf("DecryptString(\"\") = %q, %v", s, err)
	}

	ct, err := EncryptString(enc, "ya29.access-token")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(ct); err != nil {
		t.Errorf("EncryptString() output is not base64: %v", err)
	}
	pt, err := DecryptString(enc, ct)
	if err != nil {
		t.Fatalf("DecryptString() error = %v", err)
	}
	if pt != "ya29.access-token" {
		t.Errorf("round trip = %q", pt)
	}

	if _, err := DecryptString(enc, "!!not base64!!"); err == nil {
		t.Error("DecryptString() accepted invalid base64")
	}
}

func TestEncryptNonceUniqueness(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ct, err := enc.Encrypt([]byte("same plaintext"))
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		key := string(ct)
		if seen[key] {
			t.Fatal("nonce reuse: identical ciphertext produced twice")
		}
		seen[key] = true
	}
}
