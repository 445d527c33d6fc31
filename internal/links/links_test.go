package links

import "testing"

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"drops location prefix", "https://www.avito.ru/moscow/telefony/iphone_15_1234567890", "telefony/iphone_15_1234567890"},
		{"different city, same canonical", "https://www.avito.ru/sankt-peterburg/telefony/iphone_15_1234567890", "telefony/iphone_15_1234567890"},
		{"single segment unchanged", "https://www.avito.ru/1234567890", "1234567890"},
		{"relative href", "/moscow/item/123", "item/123"},
		{"no leading slash", "moscow/item/123", "item/123"},
		{"empty path", "https://www.avito.ru", ""},
		{"query and fragment ignored", "https://www.avito.ru/moscow/item/123?context=abc#top", "item/123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalPath(tt.link); got != tt.want {
				t.Errorf("CanonicalPath(%q) = %q, want %q", tt.link, got, tt.want)
			}
		})
	}
}

func TestCanonicalPathMatchesAcrossHosts(t *testing.T) {
	a := CanonicalPath("https://x/moscow/item/123")
	b := CanonicalPath("https://y/spb/item/123")

	if a != "item/123" {
		t.Errorf("expected canonical %q, got %q", "item/123", a)
	}
	if a != b {
		t.Errorf("canonical forms should match: %q vs %q", a, b)
	}
}

func TestExtractItemID(t *testing.T) {
	tests := []struct {
		link string
		want int64
	}{
		{"https://www.avito.ru/moscow/telefony/iphone_15_1234567890", 1234567890},
		{"https://www.avito.ru/moscow/item_42", 42},
		{"https://www.avito.ru/moscow/telefony/iphone", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := ExtractItemID(tt.link); got != tt.want {
			t.Errorf("ExtractItemID(%q) = %d, want %d", tt.link, got, tt.want)
		}
	}
}
