package content

import "testing"

func TestExtractImageURLs(t *testing.T) {
	text := "look at this https://img.example/cat.png and this https://img.example/dog.JPG too"
	urls := ExtractImageURLs(text)
	if len(urls) != 2 {
		t.Fatalf("got %d urls: %v", len(urls), urls)
	}
	if urls[0] != "https://img.example/cat.png" || urls[1] != "https://img.example/dog.JPG" {
		t.Errorf("urls = %v", urls)
	}
}

func TestExtractImageURLsIgnoresNonImages(t *testing.T) {
	if urls := ExtractImageURLs("see https://example.com/page.html please"); len(urls) != 0 {
		t.Errorf("non-image url matched: %v", urls)
	}
	if urls := ExtractImageURLs("no links here"); len(urls) != 0 {
		t.Errorf("matched in plain text: %v", urls)
	}
}

func TestFormatContentStripsImages(t *testing.T) {
	text := "hello https://img.example/cat.png world"
	if got := FormatContent(text); got != "hello  world" {
		t.Errorf("FormatContent = %q", got)
	}

	if got := FormatContent("https://img.example/cat.png"); got != "" {
		t.Errorf("image-only content = %q", got)
	}

	if got := FormatContent("just text"); got != "just text" {
		t.Errorf("plain content changed: %q", got)
	}
}
