package email

import (
	"bytes"
	"fmt"
	"html"
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/redmonkez12/diary-api/templates"
)

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templates.EmailFS, "email/recommendation.html"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templates.EmailFS, "email/recommendation.txt"))

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
	)

	blockEnd    = regexp.MustCompile(`(?i)(</(p|div|h[1-6]|li|blockquote|pre|tr|ul|ol)>|<br\s*/?>)`)
	listItem    = regexp.MustCompile(`(?i)<li[^>]*>`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	spaceBefore = regexp.MustCompile(`(?m)^[ \t]+`)
)

// Renderer turns recommendation markdown into email content
type Renderer struct {
	appURL string
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewRenderer(appURL string) *Renderer {
	return &Renderer{
		appURL: appURL,
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
}

// Recommendation renders the daily recommendation email for the given local date
func (r *Renderer) Recommendation(text string, date time.Time) (*Content, error) {
	var md bytes.Buffer
	if err := markdown.Convert([]byte(text), &md); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	safe := r.ugc.Sanitize(md.String())

	data := struct {
		Date   string
		Body   htmltemplate.HTML
		AppURL string
	}{
		Date:   date.Format("Monday, January 2, 2006"),
		Body:   htmltemplate.HTML(safe),
		AppURL: r.appURL,
	}

	var htmlBody bytes.Buffer
	if err := htmlTemplate.Execute(&htmlBody, data); err != nil {
		return nil, fmt.Errorf("execute html template: %w", err)
	}

	textData := struct {
		Date   string
		Body   string
		AppURL string
	}{
		Date:   data.Date,
		Body:   r.PlainText(safe),
		AppURL: r.appURL,
	}

	var textBody bytes.Buffer
	if err := textTemplate.Execute(&textBody, textData); err != nil {
		return nil, fmt.Errorf("execute text template: %w", err)
	}

	return &Content{
		Subject: "Your diary recommendation for " + date.Format("Jan 2"),
		HTML:    htmlBody.String(),
		Text:    textBody.String(),
	}, nil
}

// PlainText strips markup from rendered HTML, keeping paragraph and list breaks
func (r *Renderer) PlainText(htmlBody string) string {
	s := listItem.ReplaceAllString(htmlBody, "$0- ")
	s = blockEnd.ReplaceAllString(s, "$0\n")
	s = r.strict.Sanitize(s)
	s = html.UnescapeString(s)
	s = spaceBefore.ReplaceAllString(s, "")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
