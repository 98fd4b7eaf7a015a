package reddit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	modhashPattern     = regexp.MustCompile(`modhash["']?\s*:\s*["']([^"']*)["']`)
	commentPagePattern = regexp.MustCompile(`^https?://([^/]*)/r/([^/]*)/comments/([^/?#]*)`)
	errorCodePattern   = regexp.MustCompile(`\.error\.([A-Z_]+)`)
)

// commentPageParts holds what a reply needs from its comment page URL.
type commentPageParts struct {
	Community string
	ThingID   string
}

func parseCommentPage(commentPage string) (commentPageParts, error) {
	m := commentPagePattern.FindStringSubmatch(commentPage)
	if m == nil {
		return commentPageParts{}, fmt.Errorf("not a comment page: %s", commentPage)
	}
	return commentPageParts{Community: m[2], ThingID: linkType + m[3]}, nil
}

// extractModhash finds the anti-forgery token on a comment page, either in
// the reply form or in the page's inline config. found is false if neither
// is present. An empty token is legal for anonymous sessions.
func extractModhash(html string) (token string, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false, err
	}

	if v, ok := doc.Find(`input[name="uh"]`).First().Attr("value"); ok {
		return v, true, nil
	}

	var scripts strings.Builder
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		scripts.WriteString(s.Text())
		scripts.WriteByte('\n')
	})
	if m := modhashPattern.FindStringSubmatch(scripts.String()); m != nil {
		return m[1], true, nil
	}
	return "", false, nil
}

// errorCode returns the site's error code in a comment response, or "".
func errorCode(body string) string {
	if m := errorCodePattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}
