package sitemap

import (
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsNoIndex reports whether the HTML file declares
// <meta name="robots" content="...noindex...">. Scanning stops at <body>.
func IsNoIndex(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	return hasNoIndex(f)
}

func hasNoIndex(r io.Reader) (bool, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return false, nil
			}
			return false, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Body:
				return false, nil
			case atom.Meta:
				if robotsNoIndex(tok.Attr) {
					return true, nil
				}
			}
		}
	}
}

func robotsNoIndex(attrs []html.Attribute) bool {
	var name, content string
	for _, a := range attrs {
		switch strings.ToLower(a.Key) {
		case "name":
			name = strings.ToLower(strings.TrimSpace(a.Val))
		case "content":
			content = strings.ToLower(a.Val)
		}
	}
	if name != "robots" {
		return false
	}
	for _, directive := range strings.Split(content, ",") {
		if strings.TrimSpace(directive) == "noindex" || strings.TrimSpace(directive) == "none" {
			return true
		}
	}
	return false
}
