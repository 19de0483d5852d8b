package userstore

import "testing"

func TestGenerateCode(t *testing.T) {
	seen := make(map[byte]int)
	for i := 0; i < 200; i++ {
		code, err := generateCode(ResetCodeLength)
		if err != nil {
			t.Fatalf("generateCode failed: %v", err)
		}
		if len(code) != ResetCodeLength {
			t.Fatalf("expected %d digits, got %q", ResetCodeLength, code)
		}
		for j := 0; j < len(code); j++ {
			if code[j] < '0' || code[j] > '9' {
				t.Fatalf("non-digit %q in code %q", code[j], code)
			}
			seen[code[j]]++
		}
	}
	// 1200 draws hit all ten digits in practice; a missing digit points at
	// a broken sampling loop, not bad luck.
	if len(seen) != 10 {
		t.Errorf("expected all ten digits across draws, saw %d: %v", len(seen), seen)
	}
}
