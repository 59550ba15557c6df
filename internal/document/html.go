package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"prescription-chatbot/pkg"
)

// Title heads every prescription.
const Title = "ORDONNANCE MEDICALE"

// SignatureErrorMarker replaces a signature image that cannot be decoded.
const SignatureErrorMarker = "[Signature Error]"

var errEmptySignature = errors.New("empty signature")

var sections = []struct {
	heading string
	field   pkg.Field
}{
	{"DIAGNOSTIC", pkg.FieldDiagnosis},
	{"MEDICAMENT", pkg.FieldMedication},
	{"POSOLOGIE", pkg.FieldDosage},
	{"DUREE", pkg.FieldDuration},
	{"INSTRUCTIONS SPECIALES", pkg.FieldSpecialInstructions},
}

var pageTemplate = template.Must(template.New("prescription").Parse(`<!doctype html>
<html lang="fr"><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
@page{size:A4;margin:18mm;}
body{font-family:Arial,Helvetica,sans-serif;font-size:11pt;color:#111;}
h1{text-align:center;font-size:16pt;margin:0 0 8mm;}
h2{font-size:11pt;margin:6mm 0 1mm;}
p{margin:0 0 2mm;}
.issued{margin-top:10mm;}
.signature{margin-top:8mm;text-align:right;}
.signature img{max-width:60mm;max-height:30mm;}
.signature .error{color:#b91c1c;font-weight:bold;}
</style></head>
<body>
<h1>{{.Title}}</h1>
{{.Body}}
<p class="issued">Date: {{.Issued}}</p>
<div class="signature">
{{- if .SignatureSrc}}<img src="{{.SignatureSrc}}" alt="Signature">
{{- else if .SignatureError}}<span class="error">{{.SignatureError}}</span>
{{- else}}<p>Signature:</p>{{end}}
</div>
</body></html>
`))

type pageData struct {
	Title          string
	Body           template.HTML
	Issued         string
	SignatureSrc   template.URL
	SignatureError string
}

// BuildMarkdown lays out the record the way the printed prescription reads:
// patient and age first, then one section per clinical field.
func BuildMarkdown(rec pkg.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Patient:** %s  \n", escapeMarkdown(rec.Get(pkg.FieldPatientName)))
	fmt.Fprintf(&sb, "**Age:** %s\n\n", escapeMarkdown(rec.Get(pkg.FieldPatientAge)))
	for _, s := range sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.heading, escapeMarkdown(rec.Get(s.field)))
	}
	return sb.String()
}

// BuildHTML renders the complete prescription page.  A signature that fails
// to decode is replaced by SignatureErrorMarker; the rest of the document is
// unaffected.
func BuildHTML(rec pkg.Record, signature string, issued time.Time) (string, error) {
	var body bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(BuildMarkdown(rec)), &body); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	data := pageData{
		Title:  Title,
		Body:   template.HTML(body.String()),
		Issued: issued.Format("02/01/2006"),
	}
	if strings.TrimSpace(signature) != "" {
		src, err := SignatureDataURL(signature)
		if err != nil {
			logrus.WithError(err).Warn("signature not embedded, placeholder printed instead")
			data.SignatureError = SignatureErrorMarker
		} else {
			data.SignatureSrc = template.URL(src)
		}
	}

	var out bytes.Buffer
	if err := pageTemplate.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return out.String(), nil
}

// SignatureDataURL validates a base64 signature image, with or without a
// "data:image/...;base64," prefix, and returns a clean data URL for it.
// Only PNG and JPEG are accepted.
func SignatureDataURL(signature string) (string, error) {
	raw := strings.TrimSpace(signature)
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[i+1:]
	}
	raw = strings.Join(strings.Fields(raw), "")
	if raw == "" {
		return "", errEmptySignature
	}
	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		if img, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "=")); err != nil {
			return "", fmt.Errorf("decode signature: %w", err)
		}
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("decode signature image: %w", err)
	}
	return "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(img), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"#", `\#`, "<", `\<`, ">", `\>`, "|", `\|`, "~", `\~`,
)

// escapeMarkdown keeps user-provided values literal.
func escapeMarkdown(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		l = markdownEscaper.Replace(strings.TrimSpace(l))
		// a leading "-", "+" or "1." would start a list
		if len(l) > 0 && strings.ContainsAny(l[:1], "-+0123456789") {
			l = escapeListStart(l)
		}
		lines[i] = l
	}
	return strings.Join(lines, "  \n")
}

func escapeListStart(l string) string {
	if l[0] == '-' || l[0] == '+' {
		return `\` + l
	}
	j := 0
	for j < len(l) && l[j] >= '0' && l[j] <= '9' {
		j++
	}
	if j < len(l) && (l[j] == '.' || l[j] == ')') {
		return l[:j] + `\` + l[j:]
	}
	return l
}
