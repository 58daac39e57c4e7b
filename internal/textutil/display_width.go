package textutil

import "github.com/rivo/uniseg"

// DisplayWidth reports the printable width of text, measuring grapheme
// clusters so emoji sequences count once.
func DisplayWidth(text string) int {
	return uniseg.StringWidth(text)
}

// Column returns the display column reached after printing prefix, with tabs
// expanded to tabWidth.
func Column(prefix string, tabWidth int) int {
	return DisplayWidth(ExpandTabs(prefix, tabWidth))
}
