package landing

import (
	"encoding/json"
	"testing"
)

func TestErrorEntry_KeepsWireShape(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bare code", `"error.product.any.invalid"`},
		{"object with params", `{"key":"error.dateLanded.date.max","params":[7]}`},
		{"object with empty params", `{"key":"error.landingDate.any.invalid","params":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ErrorEntry
			if err := json.Unmarshal([]byte(tt.in), &e); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			out, err := json.Marshal(e)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(out) != tt.in {
				t.Errorf("re-encoded as %s, want %s", out, tt.in)
			}
		})
	}
}

func TestErrorEntry_ObjectWithoutParams(t *testing.T) {
	var e ErrorEntry
	if err := json.Unmarshal([]byte(`{"key":"error.vessel.missing"}`), &e); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"key":"error.vessel.missing","params":[]}`; string(out) != want {
		t.Errorf("re-encoded as %s, want %s", out, want)
	}
}
