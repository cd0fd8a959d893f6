// SPDX-License-Identifier: MIT
package param

import (
	"errors"
	"testing"
)

func TestSet(t *testing.T) {
	gain := NewFloat("gain", 1, Range[float32]{0, 10})
	gate := NewBool("gate", false)
	s := NewSet(gain, gate)

	if got, ok := s.Get("gain"); !ok || got != Parameter(gain) {
		t.Fatalf("Get(gain) = %v, %v", got, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}

	if err := s.SetString("gain", "2.5"); err != nil {
		t.Fatalf("SetString(gain) error = %v", err)
	}
	if gain.Value() != 2.5 {
		t.Errorf("gain = %v, want 2.5", gain.Value())
	}
	if err := s.SetString("volume", "1"); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("SetString(volume) error = %v, want ErrUnknownParameter", err)
	}

	all := s.All()
	if len(all) != 2 || all[0].Name() != "gain" || all[1].Name() != "gate" {
		t.Errorf("All() returned wrong order: %v", all)
	}

	snap := s.Snapshot()
	if snap["gain"] != "2.5" || snap["gate"] != "false" {
		t.Errorf("Snapshot() = %v", snap)
	}

	gate.SetValue(true)
	s.ResetAll()
	if gain.Value() != 1 || gate.Value() {
		t.Errorf("ResetAll() left gain=%v gate=%v", gain.Value(), gate.Value())
	}
}

func TestSetDuplicateName(t *testing.T) {
	expectPanic(t, "duplicate", func() {
		NewSet(NewBool("x", false), NewInt("x", 0, Range[int32]{0, 1}))
	})
}
