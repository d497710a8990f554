package asset

import (
	"errors"
	"testing"
	"time"
)

func TestParseSymbol_Supported(t *testing.T) {
	for _, s := range []string{"BTC", "ETH"} {
		sym, err := ParseSymbol(s)
		if err != nil {
			t.Errorf("ParseSymbol(%q) returned error: %v", s, err)
		}
		if string(sym) != s {
			t.Errorf("ParseSymbol(%q) = %q", s, sym)
		}
	}
}

func TestParseSymbol_Unsupported(t *testing.T) {
	for _, s := range []string{"DOGE", "btc", "", "BTC "} {
		if _, err := ParseSymbol(s); !errors.Is(err, ErrUnsupportedAsset) {
			t.Errorf("ParseSymbol(%q): expected ErrUnsupportedAsset, got %v", s, err)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if _, err := ParseDirection("UP"); err != nil {
		t.Errorf("UP should parse: %v", err)
	}
	if _, err := ParseDirection("DOWN"); err != nil {
		t.Errorf("DOWN should parse: %v", err)
	}
	if _, err := ParseDirection("SIDEWAYS"); !errors.Is(err, ErrInvalidDirection) {
		t.Error("expected ErrInvalidDirection for SIDEWAYS")
	}
}

func TestParseSide(t *testing.T) {
	if _, err := ParseSide("BUY"); err != nil {
		t.Errorf("BUY should parse: %v", err)
	}
	if _, err := ParseSide("SELL"); err != nil {
		t.Errorf("SELL should parse: %v", err)
	}
	if _, err := ParseSide("HOLD"); !errors.Is(err, ErrInvalidSide) {
		t.Error("expected ErrInvalidSide for HOLD")
	}
}

func TestTimeframe_Duration(t *testing.T) {
	cases := []struct {
		label string
		want  time.Duration
	}{
		{"1H", time.Hour},
		{"4H", 4 * time.Hour},
		{"1D", 24 * time.Hour},
		{"1W", 7 * 24 * time.Hour},
	}

	for _, tc := range cases {
		tf, err := ParseTimeframe(tc.label)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q) returned error: %v", tc.label, err)
		}
		d, err := tf.Duration()
		if err != nil {
			t.Fatalf("Duration(%q) returned error: %v", tc.label, err)
		}
		if d != tc.want {
			t.Errorf("Duration(%q) = %v, want %v", tc.label, d, tc.want)
		}
	}
}

func TestParseTimeframe_Invalid(t *testing.T) {
	for _, s := range []string{"", "H1", "1h", "1X", "1.5H", "H"} {
		if _, err := ParseTimeframe(s); !errors.Is(err, ErrInvalidTimeframe) {
			t.Errorf("ParseTimeframe(%q): expected ErrInvalidTimeframe, got %v", s, err)
		}
	}
}
