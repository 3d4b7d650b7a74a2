package secrets_test

import (
	"strings"
	"testing"

	"github.com/your-org/commerce-backend/internal/pkg/secrets"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewCipherRejectsBadKeyLength(t *testing.T) {
	if _, err := secrets.NewCipher("short"); err == nil {
		t.Fatal("want error for short key, got nil")
	}
	if _, err := secrets.NewCipher(testKey + "extra"); err == nil {
		t.Fatal("want error for long key, got nil")
	}
	if _, err := secrets.NewCipher(testKey); err != nil {
		t.Fatalf("want 32-byte key accepted, got %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := secrets.NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte(`{"username":"shipper","password":"s3cret"}`)
	blob, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(blob, "s3cret") {
		t.Fatal("ciphertext contains plaintext")
	}

	got, err := c.Decrypt(blob)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("round trip mismatch: %s", got)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, err := secrets.NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	a, err := c.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestDecryptRejectsTamperedBlob(t *testing.T) {
	c, err := secrets.NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Decrypt("not-base64!"); err == nil {
		t.Fatal("want error for invalid base64, got nil")
	}
	if _, err := c.Decrypt("c2hvcnQ="); err == nil {
		t.Fatal("want error for truncated blob, got nil")
	}

	blob, err := c.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	// Decrypting with a different key must fail
	other, err := secrets.NewCipher("abcdef0123456789abcdef0123456789")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Decrypt(blob); err == nil {
		t.Fatal("want error decrypting with wrong key, got nil")
	}
}
