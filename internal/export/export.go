// Package export renders translated documents as downloadable HTML: a
// Word-compatible .doc, a print-ready page for PDF output and a
// certificate of translation.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"
)

// Format names an export.
type Format string

const (
	FormatDoc         Format = "doc"
	FormatPrint       Format = "pdf"
	FormatCertificate Format = "certificate"
)

const (
	MIMEWord = "application/msword"
	MIMEHTML = "text/html; charset=utf-8"
)

const defaultPerformer = "Clinical AI Protocol"

// Document is what an export needs to know about a translation.
type Document struct {
	ProjectNumber  string
	TrackingID     string
	DocType        string
	TargetLanguage string
	Pages          []string
	Reviewer       string
	Date           time.Time
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

var funcs = template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
	"short": func(t time.Time) string { return t.Format("1/2/2006") },
	"long":  func(t time.Time) string { return t.Format("January 2, 2006") },
}

var (
	wordTmpl        = template.Must(template.New("doc").Funcs(funcs).Parse(wordHTML))
	printTmpl       = template.Must(template.New("print").Funcs(funcs).Parse(printHTML))
	certificateTmpl = template.Must(template.New("certificate").Funcs(funcs).Parse(certificateHTML))
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Render produces the export in the requested format.
func Render(f Format, d Document) (File, error) {
	if d.Date.IsZero() {
		d.Date = time.Now()
	}
	switch f {
	case FormatDoc:
		if len(d.Pages) == 0 {
			return File{}, fmt.Errorf("nothing to export")
		}
		body, err := execute(wordTmpl, d)
		return File{Name: WordFilename(d.ProjectNumber, d.TargetLanguage), ContentType: MIMEWord, Body: body}, err
	case FormatPrint:
		if len(d.Pages) == 0 {
			return File{}, fmt.Errorf("nothing to export")
		}
		body, err := execute(printTmpl, d)
		return File{Name: fmt.Sprintf("Translation_%s_%s.html", safe(d.ProjectNumber), safe(d.TargetLanguage)), ContentType: MIMEHTML, Body: body}, err
	case FormatCertificate:
		if strings.TrimSpace(d.Reviewer) == "" {
			d.Reviewer = defaultPerformer
		}
		body, err := execute(certificateTmpl, d)
		return File{Name: fmt.Sprintf("Certificate_%s.html", safe(d.TrackingID)), ContentType: MIMEHTML, Body: body}, err
	}
	return File{}, fmt.Errorf("unknown export format %q", f)
}

// WordFilename is Translation_<project>_<language>.doc.
func WordFilename(project, lang string) string {
	return fmt.Sprintf("Translation_%s_%s.doc", safe(project), safe(lang))
}

func safe(s string) string {
	s = unsafeName.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return "untitled"
	}
	return s
}

func execute(t *template.Template, d Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}

const wordHTML = `<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head><meta charset='utf-8'><style>
  body { font-family: 'Times New Roman', serif; font-size: 12pt; text-align: justify; padding: 1in; }
  .header-meta { font-family: Arial, sans-serif; font-size: 9pt; color: #666; margin-bottom: 20pt; text-align: right; border-bottom: 1px solid #ccc; }
  h1 { font-size: 16pt; color: #000; text-align: center; }
</style></head>
<body>
  <div class="header-meta">
    Project: {{.ProjectNumber}} | ID: {{.TrackingID}}<br/>
    Date: {{short .Date}}<br/>
    Type: {{.DocType}}
  </div>
  <h1>{{.DocType}} - {{.TargetLanguage}}</h1>
  <div>{{range $i, $p := .Pages}}{{if $i}}<br/><br/>{{end}}{{range $j, $l := lines $p}}{{if $j}}<br/>{{end}}{{$l}}{{end}}{{end}}</div>
</body></html>
`

const printHTML = `<html>
<head>
  <title>{{.ProjectNumber}} - Clinical Translation</title>
  <style>
    body { font-family: 'Lora', serif; line-height: 1.6; padding: 50px; color: #1e293b; max-width: 800px; margin: 0 auto; }
    .header { border-bottom: 2px solid #0891b2; padding-bottom: 15px; margin-bottom: 40px; display: flex; justify-content: space-between; align-items: flex-end; }
    .project-id { font-family: 'Inter', sans-serif; font-size: 10px; font-weight: 700; text-transform: uppercase; color: #64748b; letter-spacing: 1px; }
    .doc-title { font-family: 'Inter', sans-serif; font-size: 20px; font-weight: 700; color: #0f172a; margin-top: 5px; }
    .content { white-space: pre-wrap; font-size: 14px; text-align: justify; }
    .footer { margin-top: 50px; border-top: 1px solid #e2e8f0; padding-top: 10px; font-size: 9px; color: #94a3b8; text-align: center; font-family: 'Inter', sans-serif; }
  </style>
</head>
<body onload="window.print()">
  <div class="header">
    <div>
      <div class="project-id">{{.ProjectNumber}} | {{.TrackingID}}</div>
      <div class="doc-title">{{.DocType}}</div>
    </div>
    <div class="project-id">Target: {{.TargetLanguage}}</div>
  </div>
  <div class="content">{{range $i, $p := .Pages}}{{if $i}}<div style="page-break-after: always;"></div>{{end}}{{$p}}{{end}}</div>
  <div class="footer">Generated via AIDE Agentic Platform - Confidential &amp; Proprietary - {{short .Date}}</div>
</body>
</html>
`

const certificateHTML = `<html>
<head>
  <title>AIDE Agentic Certificate</title>
  <style>
    body { font-family: 'Inter', sans-serif; padding: 100px; color: #1e293b; max-width: 600px; margin: 0 auto; border: 1px solid #e2e8f0; }
    .header { text-align: center; border-bottom: 2px solid #0891b2; padding-bottom: 20px; margin-bottom: 50px; }
    .sys-name { font-size: 20px; font-weight: 800; color: #0891b2; text-transform: uppercase; letter-spacing: 1.5px; }
    .item { margin-bottom: 40px; border-left: 4px solid #f1f5f9; padding-left: 20px; }
    .label { font-size: 10px; font-weight: 800; color: #94a3b8; text-transform: uppercase; letter-spacing: 1px; margin-bottom: 5px; }
    .value { font-size: 16px; color: #0f172a; font-weight: 600; }
  </style>
</head>
<body onload="window.print()">
  <div class="header"><div class="sys-name">AIDE- Agentic Translation</div></div>
  <div class="item"><div class="label">Who Performed</div><div class="value">{{.Reviewer}}</div></div>
  <div class="item"><div class="label">Date</div><div class="value">{{long .Date}}</div></div>
  <div class="item"><div class="label">Type of document</div><div class="value">{{.DocType}}</div></div>
  <div class="item"><div class="label">Verification Completed</div><div class="value">Authenticated (Quality Accuracy Index: Certified)</div></div>
</body>
</html>
`

// Consent is a generated informed consent form ready for download.
type Consent struct {
	Type     string
	Country  string
	Language string
	// Content is model-generated HTML and is embedded as-is.
	Content string
	Date    time.Time
}

var consentTmpl = template.Must(template.New("icf").Funcs(funcs).Parse(consentHTML))

// RenderConsent produces a Word-compatible .doc named
// <type>_<country>_<language>.doc.
func RenderConsent(c Consent) (File, error) {
	if strings.TrimSpace(c.Content) == "" {
		return File{}, fmt.Errorf("nothing to export")
	}
	if c.Date.IsZero() {
		c.Date = time.Now()
	}
	var buf bytes.Buffer
	err := consentTmpl.Execute(&buf, struct {
		Consent
		Body template.HTML
	}{c, template.HTML(c.Content)})
	if err != nil {
		return File{}, fmt.Errorf("failed to render icf: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.doc", safe(c.Type), safe(c.Country), safe(c.Language))
	return File{Name: name, ContentType: MIMEWord, Body: buf.Bytes()}, nil
}

const consentHTML = `<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head><meta charset='utf-8'><title>{{.Type}}</title><style>
  body { font-family: Arial, sans-serif; font-size: 11pt; line-height: 1.5; }
  h1 { font-size: 18pt; color: #1e3a8a; text-align: center; }
  .meta { font-size: 9pt; color: #666; text-align: center; margin-bottom: 20pt; }
  .footer { margin-top: 30pt; font-size: 8pt; color: #999; text-align: center; border-top: 1px solid #ccc; padding-top: 10pt; }
</style></head>
<body>
  <h1>{{.Type}}</h1>
  <div class="meta">Jurisdiction: {{.Country}} | Language: {{.Language}} | Generated: {{short .Date}}</div>
  {{.Body}}
  <div class="footer">Generated by AIDE - Clinical Development System - Confidential</div>
</body></html>
`
