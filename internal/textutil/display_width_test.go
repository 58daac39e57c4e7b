package textutil

import "testing"

func TestDisplayWidthGraphemeClusters(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"warning emoji with VS16", "\u26a0\ufe0f", 2},
		{"thumbs up with skin tone", "\U0001F44D\U0001F3FB", 2},
		{"family zwj", "\U0001F468\u200d\U0001F469\u200d\U0001F467", 2},
		{"flag regional indicators", "\U0001F1F5\U0001F1F1", 2},
		{"keycap one", "1\ufe0f\u20e3", 2},
		{"mixed ascii + emoji", "a\u26a0\ufe0fb", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayWidth(tt.text); got != tt.want {
				t.Fatalf("DisplayWidth(%q)=%d want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestColumnExpandsTabs(t *testing.T) {
	tests := []struct {
		prefix string
		want   int
	}{
		{"", 0},
		{"abc", 3},
		{"\t", 4},
		{"ab\t", 4},
		{"全角", 4},
		{"\t全", 6},
	}
	for _, tt := range tests {
		if got := Column(tt.prefix, DefaultTabWidth); got != tt.want {
			t.Fatalf("Column(%q)=%d want %d", tt.prefix, got, tt.want)
		}
	}
}

func TestTruncateToWidth(t *testing.T) {
	if got := TruncateToWidth("abcdefgh", 5, "…"); got != "abcd…" {
		t.Fatalf("TruncateToWidth = %q", got)
	}
	if got := TruncateToWidth("abc", 5, "…"); got != "abc" {
		t.Fatalf("TruncateToWidth short = %q", got)
	}
}
