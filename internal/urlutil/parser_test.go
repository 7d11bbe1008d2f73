package urlutil

import "testing"

func TestVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://urlebird.com/video/dance-clip-7111111111111111111/", "7111111111111111111"},
		{"https://urlebird.com/video/dance-clip-7111111111111111111", "7111111111111111111"},
		{"/video/x-123/", "123"},
		{"https://urlebird.com/hash/dance/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := VideoID(tt.url); got != tt.want {
			t.Errorf("VideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base := "https://urlebird.com"
	if got := ResolveURL(base, "/video/a-1/"); got != "https://urlebird.com/video/a-1/" {
		t.Errorf("relative: %q", got)
	}
	if got := ResolveURL(base, "https://cdn.example.com/t.jpg"); got != "https://cdn.example.com/t.jpg" {
		t.Errorf("absolute: %q", got)
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://urlebird.com/hash/dance/"); err != nil {
		t.Errorf("valid URL rejected: %v", err)
	}
	if err := ValidateURL("ftp://example.com"); err == nil {
		t.Error("non-http scheme accepted")
	}
	if err := ValidateURL("/relative/only"); err == nil {
		t.Error("host-less URL accepted")
	}
}
