package pdfdoi

import "testing"

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "plain doi",
			text: "Cad. Saúde Pública 36(4) DOI: 10.1590/0102-311X00123419",
			want: "10.1590/0102-311X00123419",
		},
		{
			name: "trailing punctuation",
			text: "available at https://doi.org/10.1590/0102-311X00123419.",
			want: "10.1590/0102-311X00123419",
		},
		{
			name: "first of several",
			text: "10.1590/abc-123 and later 10.1016/j.def.2020.456",
			want: "10.1590/abc-123",
		},
		{
			name: "no doi",
			text: "an ordinary paragraph without identifiers",
			want: "",
		},
		{
			name: "too short",
			text: "10.1/x",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindDOI(tt.text); got != tt.want {
				t.Errorf("FindDOI(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDOIMissingFile(t *testing.T) {
	if _, err := ExtractDOI("/nonexistent.pdf"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
