package utils

import "testing"

func TestGenerateHMAC(t *testing.T) {
	body := []byte(`{"account":1}`)
	sig := GenerateHMAC(body, "secret")

	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	if sig != GenerateHMAC(body, "secret") {
		t.Error("signature is not deterministic")
	}
	if sig == GenerateHMAC(body, "other") {
		t.Error("signature does not depend on the secret")
	}

	tests := []struct {
		name      string
		body      []byte
		signature string
		want      bool
	}{
		{"valid", body, sig, true},
		{"tampered body", []byte(`{"account":2}`), sig, false},
		{"not hex", body, "zz", false},
		{"empty", body, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyHMAC(tt.body, tt.signature, "secret"); got != tt.want {
				t.Errorf("VerifyHMAC = %v, want %v", got, tt.want)
			}
		})
	}
}
