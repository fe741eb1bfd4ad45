package domain

import (
	"testing"
	"time"
)

func TestFeatureVector_Get(t *testing.T) {
	vec := FeatureVector{
		Symbol:      "BTC",
		At:          time.Now(),
		CVD:         Field{Value: 12.5, OK: true},
		MomentumBps: Field{Value: -30, OK: true},
	}

	t.Run("Known Field", func(t *testing.T) {
		f := vec.Get(FieldCVD)
		if !f.OK || f.Value != 12.5 {
			t.Errorf("Get(cvd) = %+v, want {12.5 true}", f)
		}
	})

	t.Run("Insufficient Field Stays Not-OK", func(t *testing.T) {
		f := vec.Get(FieldOIDeltaPct)
		if f.OK {
			t.Error("field without data should report OK=false")
		}
		if f.Value != 0 {
			t.Errorf("not-OK field value = %v, want 0", f.Value)
		}
	})

	t.Run("Unknown Name Fails Closed", func(t *testing.T) {
		f := vec.Get("volatility_5m")
		if f.OK {
			t.Error("unknown field name must never report OK")
		}
	})
}

func TestKnownField(t *testing.T) {
	for _, name := range FieldNames() {
		if !KnownField(name) {
			t.Errorf("FieldNames entry %q not recognized by KnownField", name)
		}
	}
	if KnownField("cvd_5m") {
		t.Error("KnownField should reject unlisted names")
	}
}

func TestOpposite(t *testing.T) {
	if Opposite(SideBuy) != SideSell {
		t.Error("opposite of BUY should be SELL")
	}
	if Opposite(SideSell) != SideBuy {
		t.Error("opposite of SELL should be BUY")
	}
}
