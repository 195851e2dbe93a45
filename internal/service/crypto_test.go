package service

import (
	"strings"
	"testing"
)

func TestEncryptionRoundTrip(t *testing.T) {
	svc, err := NewEncryptionService(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("NewEncryptionService: %v", err)
	}

	plaintext := `{"type":"bearer","token":"secret-token"}`
	encrypted, err := svc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted == plaintext {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := svc.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("round trip = %q, want %q", decrypted, plaintext)
	}

	// Fresh nonce per call
	again, err := svc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if again == encrypted {
		t.Error("two encryptions produced identical ciphertext")
	}
}

func TestEncryptionRejectsShortKey(t *testing.T) {
	if _, err := NewEncryptionService("too-short"); err == nil {
		t.Fatal("short key accepted")
	}
}

func TestDecryptRejectsTampered(t *testing.T) {
	svc, err := NewEncryptionService(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("NewEncryptionService: %v", err)
	}

	if _, err := svc.Decrypt("not base64!!"); err == nil {
		t.Error("invalid base64 accepted")
	}
	if _, err := svc.Decrypt("c2hvcnQ="); err == nil {
		t.Error("truncated ciphertext accepted")
	}

	other, err := NewEncryptionService(strings.Repeat("x", 32))
	if err != nil {
		t.Fatalf("NewEncryptionService: %v", err)
	}
	encrypted, err := svc.Encrypt("data")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := other.Decrypt(encrypted); err == nil {
		t.Error("decryption with the wrong key succeeded")
	}
}
