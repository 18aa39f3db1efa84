package payments

import "testing"

func TestValidSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)
	good := Sign(secret, body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{"matching signature", secret, body, good, true},
		{"tampered body", secret, []byte(`{"event":"charge.success","data":{"reference":"ref-2"}}`), good, false},
		{"wrong secret", "sk_test_other", body, good, false},
		{"missing signature", secret, body, "", false},
		{"not hex", secret, body, "zz" + good[2:], false},
		{"truncated", secret, body, good[:64], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidSignature(tt.secret, tt.body, tt.signature); got != tt.want {
				t.Errorf("ValidSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSign_IsHexSHA512(t *testing.T) {
	if got := len(Sign("k", []byte("x"))); got != 128 {
		t.Errorf("expected 128 hex chars, got %d", got)
	}
}
