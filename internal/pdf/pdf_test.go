package pdf

import "testing"

func TestText_EmptyInput(t *testing.T) {
	if got := Text(nil); got != "" {
		t.Errorf("Expected empty text for nil input, got %q", got)
	}
	if got := Text([]byte{}); got != "" {
		t.Errorf("Expected empty text for empty input, got %q", got)
	}
}

func TestText_NotAPDF(t *testing.T) {
	inputs := [][]byte{
		[]byte("plain text, not a pdf"),
		[]byte("%PDF-1.4 truncated before any structure"),
		{0x00, 0x01, 0x02, 0x03, 0xff, 0xfe},
	}

	for _, input := range inputs {
		// Must not panic and must not invent content.
		if got := Text(input); got != "" {
			t.Errorf("Expected empty text for %q, got %q", input, got)
		}
	}
}
