// Package ssr post-processes rendered pages.
package ssr

import (
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/survey/internal/errors"
	"golang.org/x/net/html"
)

// Button variants and the classes they expand to.
var variants = map[string]string{
	"button-primary":   "btn btn-primary",
	"button-secondary": "btn btn-secondary",
}

// ReplaceCustomElements expands button variants in a full HTML document.
//
// Elements marked with as="button-primary" keep their tag and gain the variant classes, custom elements such as
// <button-secondary> become plain buttons. The document is written to writer including its doctype.
func ReplaceCustomElements(writer io.Writer, reader io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return errors.Wrap(err, "parse document")
	}

	for variant, classes := range variants {
		doc.Find(variant).Each(func(_ int, s *goquery.Selection) {
			s.Nodes[0].Data = "button"
			s.AddClass(classes)
			if _, ok := s.Attr("type"); !ok {
				s.SetAttr("type", "submit")
			}
		})
		doc.Find(`[as="` + variant + `"]`).Each(func(_ int, s *goquery.Selection) {
			s.RemoveAttr("as")
			s.AddClass(classes)
		})
	}

	if err = html.Render(writer, doc.Nodes[0]); err != nil {
		return errors.Wrap(err, "render html")
	}
	return nil
}
