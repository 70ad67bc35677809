package portal

import "testing"

const sampleFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Cadernos de Saúde Pública, 2020 36(4)</title>
  <entry>
    <id>10.1590/0102-311X00123419</id>
    <title>First article</title>
    <updated>2020-04-06T00:00:00Z</updated>
  </entry>
  <entry>
    <id> 10.1590/0102-311X00054919 </id>
    <title>Second article</title>
    <updated>not a date</updated>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	feed, err := ParseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if len(feed.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(feed.Entries))
	}
	if got := feed.Entries[0].DOI(); got != "10.1590/0102-311X00123419" {
		t.Errorf("DOI = %q", got)
	}
	if got := feed.Entries[1].DOI(); got != "10.1590/0102-311X00054919" {
		t.Errorf("DOI not trimmed: %q", got)
	}
	if got := feed.Entries[0].Timestamp(); got != "2020-04-06 00:00:00" {
		t.Errorf("Timestamp = %q", got)
	}
	if got := feed.Entries[1].Timestamp(); got != "not a date" {
		t.Errorf("unparseable timestamp rewritten to %q", got)
	}
}

func TestParseFeedInvalid(t *testing.T) {
	if _, err := ParseFeed([]byte("<feed><entry>")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFeedURL(t *testing.T) {
	got := FeedURL("https://www.scielosp.org/j/csp/i/2020.v36n4/")
	want := "https://www.scielosp.org/feed/csp/2020.v36n4/"
	if got != want {
		t.Errorf("FeedURL = %q, want %q", got, want)
	}
}

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"pt":      "pt_BR",
		"pt-BR":   "pt_BR",
		"pt_BR":   "pt_BR",
		"es":      "es_ES",
		"en":      "en_US",
		"unknown": "unknown",
	}
	for in, want := range cases {
		if got := NormalizeLocale(in); got != want {
			t.Errorf("NormalizeLocale(%q) = %q, want %q", in, got, want)
		}
	}
}
