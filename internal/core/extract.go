package core

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"prescription-chatbot/internal/llm"
	"prescription-chatbot/pkg"
)

var tracer = otel.Tracer("prescription-chatbot/internal/core")

// Extractor turns one user message into field values by asking the model for
// a fixed set of "Label: value" lines and parsing them back.
type Extractor struct {
	LLM  llm.Client
	Norm *Normalizer
}

// NewExtractor constructs an Extractor.
func NewExtractor(client llm.Client, norm *Normalizer) *Extractor {
	return &Extractor{LLM: client, Norm: norm}
}

// Extract returns the fields the message states.  prior is only used to give
// the model context.  Any model failure yields an empty map: a turn that
// cannot be extracted simply learns nothing.
func (e *Extractor) Extract(ctx context.Context, text string, prior pkg.Record) map[pkg.Field]string {
	ctx, span := tracer.Start(ctx, "Extractor.Extract")
	defer span.End()

	span.SetAttributes(
		attribute.Int("input_length", len(text)),
		attribute.Int("known_fields", len(pkg.Fields)-len(prior.MissingFields())),
	)

	if strings.TrimSpace(text) == "" {
		return map[pkg.Field]string{}
	}

	out, err := e.LLM.Complete(ctx, llm.Request{
		Task:   llm.TaskExtract,
		System: ExtractionSystemPrompt,
		Prompt: BuildExtractionPrompt(text, prior),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		logrus.WithError(err).Warn("extraction failed, no fields learned this turn")
		return map[pkg.Field]string{}
	}

	fields := ParseFields(e.Norm, out)
	span.SetAttributes(attribute.Int("extracted_fields", len(fields)))
	if len(fields) == 0 {
		logrus.WithField("output_length", len(out)).Debug("extraction produced no usable lines")
	}
	return fields
}

// BuildExtractionPrompt renders the extraction prompt: the fields already
// known (if any), the user's text verbatim and the seven-line template.
func BuildExtractionPrompt(text string, prior pkg.Record) string {
	var sb strings.Builder
	if len(prior.MissingFields()) < len(pkg.Fields) {
		sb.WriteString(extractionKnownHeader)
		sb.WriteString(prior.Display())
		sb.WriteString("\n\n")
	}
	sb.WriteString("Texte:\n\"\"\"\n")
	sb.WriteString(text)
	sb.WriteString("\n\"\"\"\n\n")
	sb.WriteString(extractionInstruction)
	sb.WriteString("\n\n")
	for _, f := range pkg.Fields {
		sb.WriteString(f.DisplayLabel())
		sb.WriteString(":\n")
	}
	return sb.String()
}

// ParseFields reads "Label: value" lines.  Lines without a colon, with an
// unknown label or with an absent value are skipped.  Only the first colon
// splits, so "Prendre a 8:00" survives as a value.  When a label repeats,
// the first usable line wins.
func ParseFields(n *Normalizer, output string) map[pkg.Field]string {
	fields := map[pkg.Field]string{}
	for _, line := range strings.Split(output, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		f, ok := n.NormalizeKey(label)
		if !ok {
			continue
		}
		if _, seen := fields[f]; seen {
			continue
		}
		value = cleanValue(value)
		if n.IsAbsent(value) {
			continue
		}
		fields[f] = value
	}
	return fields
}
