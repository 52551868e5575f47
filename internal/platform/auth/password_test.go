package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "admin123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !VerifyPassword("admin123", hash) {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestVerifyPassword_BadDigest(t *testing.T) {
	if VerifyPassword("anything", "not-a-bcrypt-digest") {
		t.Error("expected malformed digest to fail verification")
	}
}
