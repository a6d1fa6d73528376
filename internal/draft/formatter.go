package draft

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

var emailShell = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; font-size: 14px; line-height: 1.5; color: #333333;">
  <div>
    {{.Body}}
    {{if .Signature}}
    <div>
      {{.Signature}}
    </div>
    {{end}}
  </div>
</body>
</html>`))

// NewFormatter creates the HTML email formatter. signatureHTML may be
// empty.
func NewFormatter(signatureHTML string) *Formatter {
	return &Formatter{signatureHTML: signatureHTML}
}

// Formatter renders a plain-text draft as an HTML email plus a plain
// text alternative, appending the configured signature.
type Formatter struct {
	signatureHTML string
}

// Format returns the HTML rendering and the plain-text version of the
// body with the signature attached.
func (f *Formatter) Format(body string) (htmlContent, plainText string, err error) {
	var b strings.Builder
	err = emailShell.Execute(&b, struct {
		Body      template.HTML
		Signature template.HTML
	}{
		Body:      template.HTML(TextToHTML(body)),
		Signature: template.HTML(f.signatureHTML),
	})
	if err != nil {
		return "", "", fmt.Errorf("template.Execute failed: %w", err)
	}

	plainText = body
	if f.signatureHTML != "" {
		plainSignature := strings.TrimSpace(stripTags(f.signatureHTML))
		if plainSignature != "" {
			plainText = body + "\n\n--\n" + plainSignature
		}
	}

	return b.String(), plainText, nil
}

var multiNewlineRe = regexp.MustCompile(`\n\n+`)

// TextToHTML converts plain text to paragraph markup: double newlines
// become <p> blocks, single newlines become <br>, special characters
// are escaped.
func TextToHTML(text string) string {
	if text == "" {
		return ""
	}

	escaped := template.HTMLEscapeString(text)
	normalized := strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\r", "\n")

	var paragraphs []string
	for _, para := range multiNewlineRe.Split(strings.TrimSpace(normalized), -1) {
		p := strings.ReplaceAll(strings.TrimSpace(para), "\n", "<br>\n")
		if p != "" {
			paragraphs = append(paragraphs, `<p style="margin: 0 0 1em 0;">`+p+`</p>`)
		}
	}

	return strings.Join(paragraphs, "\n")
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

func stripTags(html string) string {
	return strings.ReplaceAll(tagRe.ReplaceAllString(html, ""), "&nbsp;", " ")
}
