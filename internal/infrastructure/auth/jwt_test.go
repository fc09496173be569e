package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.Generate("ops-uploader")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Subject != "ops-uploader" {
		t.Fatalf("expected subject ops-uploader, got %q", claims.Subject)
	}
}

func TestJWTManager_RejectsEmptySubject(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	if _, err := m.Generate(""); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
}

func TestJWTManager_VerifyFailures(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	signer := NewJWTManager("secret", time.Hour)
	signer.now = func() time.Time { return issued }
	token, err := signer.Generate("ops-uploader")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	expired := NewJWTManager("secret", time.Hour)
	expired.now = func() time.Time { return issued.Add(2 * time.Hour) }

	other := NewJWTManager("different", time.Hour)
	other.now = func() time.Time { return issued }

	tests := []struct {
		name    string
		manager *JWTManager
		token   string
		want    error
	}{
		{name: "expired", manager: expired, token: token, want: ErrExpiredToken},
		{name: "wrong secret", manager: other, token: token, want: ErrInvalidToken},
		{name: "garbage", manager: signer, token: "not-a-jwt", want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.manager.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
