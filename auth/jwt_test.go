package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestUserIDFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"sub", jwt.MapClaims{"sub": "user-1", "id": "other"}, "user-1"},
		{"id fallback", jwt.MapClaims{"id": "user-2"}, "user-2"},
		{"empty sub", jwt.MapClaims{"sub": "", "id": "user-3"}, "user-3"},
		{"none", jwt.MapClaims{}, ""},
		{"wrong type", jwt.MapClaims{"sub": 42}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserIDFromClaims(tt.claims); got != tt.want {
				t.Errorf("UserIDFromClaims() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayNameFromClaims(t *testing.T) {
	tests := []struct {
		claims jwt.MapClaims
		want   string
	}{
		{jwt.MapClaims{"name": "Ada Lovelace"}, "Ada"},
		{jwt.MapClaims{"name": "  Grace  "}, "Grace"},
		{jwt.MapClaims{"name": ""}, fallbackDisplayName},
		{jwt.MapClaims{}, fallbackDisplayName},
	}
	for _, tt := range tests {
		if got := DisplayNameFromClaims(tt.claims); got != tt.want {
			t.Errorf("DisplayNameFromClaims(%v) = %q, want %q", tt.claims, got, tt.want)
		}
	}
}

func TestValidatorDisabled(t *testing.T) {
	v := NewValidator("")
	if v.Enabled() {
		t.Fatal("validator without base URL should be disabled")
	}
	if _, err := v.Validate("token"); err == nil {
		t.Error("disabled validator should reject tokens")
	}

	var nilValidator *Validator
	if nilValidator.Enabled() {
		t.Error("nil validator should be disabled")
	}
}
