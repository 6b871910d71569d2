package ssr_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/survey/internal/ssr"
	"github.com/stretchr/testify/require"
)

func TestReplaceCustomElements(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		selector  string
		wantClass string
		wantType  string
	}{
		{
			name:      "as attribute keeps the element",
			input:     `<a href="/" as="button-primary">Start</a>`,
			selector:  "a.btn.btn-primary",
			wantClass: "btn btn-primary",
			wantType:  "",
		},
		{
			name:      "custom element becomes a submit button",
			input:     `<button-secondary class="test" formaction="/survey/previous">Previous</button-secondary>`,
			selector:  "button.btn-secondary",
			wantClass: "test btn btn-secondary",
			wantType:  "submit",
		},
		{
			name:      "explicit type is kept",
			input:     `<button-primary type="button">Retry</button-primary>`,
			selector:  "button.btn-primary",
			wantClass: "btn btn-primary",
			wantType:  "button",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := ssr.ReplaceCustomElements(&out, strings.NewReader("<!DOCTYPE html><html><body>"+tt.input+"</body></html>"))
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(out.String(), "<!DOCTYPE html>"))

			doc, err := goquery.NewDocumentFromReader(&out)
			require.NoError(t, err)
			s := doc.Find(tt.selector)
			require.Equal(t, 1, s.Length())
			class, _ := s.Attr("class")
			require.Equal(t, tt.wantClass, class)
			typ, _ := s.Attr("type")
			require.Equal(t, tt.wantType, typ)
			_, hasAs := s.Attr("as")
			require.False(t, hasAs)
		})
	}
}
