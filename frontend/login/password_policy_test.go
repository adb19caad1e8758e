package login

import "testing"

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		name string
		pwd  string
		ok   bool
	}{
		{name: "valid mixed", pwd: "Warehouse#2026", ok: true},
		{name: "valid unicode", pwd: "Armazém!Senha9", ok: true},
		{name: "short", pwd: "A1!bc", ok: false},
		{name: "no symbol", pwd: "Warehouse2026x", ok: false},
		{name: "no upper", pwd: "warehouse#2026", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tc.pwd)
			if tc.ok && err != nil {
				t.Fatalf("expected valid password, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected policy error")
			}
		})
	}
}
