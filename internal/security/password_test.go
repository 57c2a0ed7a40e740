package security

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the password")
	}

	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("CheckPassword() should accept the original password")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("CheckPassword() should reject a different password")
	}
}

func TestLongPasswordsTruncateConsistently(t *testing.T) {
	// bcrypt only looks at the first 72 bytes; hashing and checking must
	// truncate the same way
	long := strings.Repeat("a", 100)
	hash, err := HashPassword(long)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !CheckPassword(long, hash) {
		t.Error("CheckPassword() should accept the long password")
	}
	if !CheckPassword(strings.Repeat("a", 72), hash) {
		t.Error("passwords identical in the first 72 bytes should match")
	}
}
