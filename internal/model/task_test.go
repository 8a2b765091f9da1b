package model

import "testing"

func TestTaskStatus(t *testing.T) {
	tests := []struct {
		raw    string
		valid  bool
		active bool
	}{
		{"todo", true, true},
		{"in_progress", true, true},
		{"blocked", true, true},
		{"done", true, false},
		{"open", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s, err := ParseTaskStatus(tt.raw)
			if tt.valid && err != nil {
				t.Fatalf("ParseTaskStatus(%q) error: %v", tt.raw, err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatalf("ParseTaskStatus(%q) accepted invalid status", tt.raw)
				}
				return
			}
			if s.Active() != tt.active {
				t.Errorf("%q.Active() = %v, want %v", s, s.Active(), tt.active)
			}
		})
	}
}

func TestValidPriority(t *testing.T) {
	for p := -1; p <= 4; p++ {
		want := p >= 0 && p <= 3
		if got := ValidPriority(p); got != want {
			t.Errorf("ValidPriority(%d) = %v, want %v", p, got, want)
		}
	}
}

func TestPatchIsEmpty(t *testing.T) {
	if !(TaskPatch{}).IsEmpty() {
		t.Error("zero TaskPatch should be empty")
	}
	if (TaskPatch{Description: Clear[string]()}).IsEmpty() {
		t.Error("clearing description is a write")
	}
	if (ListPatch{Name: Some("")}).IsEmpty() {
		t.Error("setting an empty name is still a write")
	}
	if !(SubtaskPatch{}).IsEmpty() || (SubtaskPatch{Done: Some(false)}).IsEmpty() {
		t.Error("SubtaskPatch.IsEmpty mismatch")
	}
}
