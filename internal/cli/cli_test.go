package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prescription-chatbot/internal/core"
	"prescription-chatbot/internal/llm"
	"prescription-chatbot/pkg"
)

type echoClient struct{}

func (echoClient) Complete(_ context.Context, req llm.Request) (string, error) {
	if req.Task == llm.TaskReply {
		return "Bien recu.", nil
	}
	_, rest, _ := strings.Cut(req.Prompt, "\"\"\"\n")
	text, _, _ := strings.Cut(rest, "\n\"\"\"")
	return text, nil
}

func (echoClient) Available(context.Context) bool { return true }
func (echoClient) Name() string                   { return "fake/echo" }

type recordingGenerator struct {
	rec pkg.Record
}

func (g *recordingGenerator) Generate(_ context.Context, rec pkg.Record, _ string) ([]byte, error) {
	g.rec = rec
	return []byte("%PDF-1.4"), nil
}

func testApp(gen *recordingGenerator) *App {
	return &App{
		LLM:        func() (llm.Client, error) { return echoClient{}, nil },
		Normalizer: core.NewNormalizer(core.DefaultLexicon()),
		Documents:  func() (core.DocumentGenerator, error) { return gen, nil },
	}
}

func run(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtract_FromArgs(t *testing.T) {
	out, err := run(t, testApp(nil), "", "extract", "Diagnostic: Angine\nMedicament: Amoxicilline")
	require.NoError(t, err)

	var got struct {
		IsComplete    bool               `json:"isComplete"`
		MissingFields []string           `json:"missingFields"`
		Record        map[string]*string `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.IsComplete)
	require.NotNil(t, got.Record["diagnosis"])
	assert.Equal(t, "Angine", *got.Record["diagnosis"])
	assert.Equal(t, "Amoxicilline", *got.Record["medication"])
	assert.Len(t, got.MissingFields, 5)
}

func TestExtract_FromStdinWithPrior(t *testing.T) {
	dir := t.TempDir()
	prior := filepath.Join(dir, "prior.json")
	require.NoError(t, os.WriteFile(prior, []byte(`{"patientName":"Jean Dupont","patientAge":"non specifie"}`), 0o644))

	out, err := run(t, testApp(nil), "Age: 45", "extract", "--prior", prior)
	require.NoError(t, err)
	assert.Contains(t, out, `"patientName": "Jean Dupont"`)
	assert.Contains(t, out, `"patientAge": "45"`)
}

func TestExtract_PriorWithUnknownField(t *testing.T) {
	dir := t.TempDir()
	prior := filepath.Join(dir, "prior.json")
	require.NoError(t, os.WriteFile(prior, []byte(`{"weight":"70kg"}`), 0o644))

	_, err := run(t, testApp(nil), "", "extract", "--prior", prior, "x")
	assert.ErrorContains(t, err, "unknown field")
}

func TestExtract_ClientError(t *testing.T) {
	app := testApp(nil)
	app.LLM = func() (llm.Client, error) { return nil, errors.New("no provider") }
	_, err := run(t, app, "", "extract", "hello")
	assert.EqualError(t, err, "no provider")
}

func TestChat_Session(t *testing.T) {
	gen := &recordingGenerator{}
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "out.pdf")

	stdin := strings.Join([]string{
		"Nom: Jean Dupont",
		"/etat",
		"/pdf " + pdfPath,
		"Age: 45",
		"/reset",
		"/etat",
		"/quitter",
	}, "\n")
	out, err := run(t, testApp(gen), stdin, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Bien recu.")
	assert.Contains(t, out, "- Nom: Jean Dupont")
	assert.Contains(t, out, "Donnees incompletes")
	assert.Contains(t, out, "Session reinitialisee.")
	assert.Contains(t, out, "Aucune info")
	assert.NoFileExists(t, pdfPath)
}

func TestChat_GeneratesPDFWhenComplete(t *testing.T) {
	gen := &recordingGenerator{}
	pdfPath := filepath.Join(t.TempDir(), "ordonnance.pdf")

	full := []string{
		"Nom: Jean Dupont", "Age: 45", "Diagnostic: Hypertension", "Medicament: Lisinopril",
		"Dosage: 10mg/jour", "Duree: 30 jours", "Instructions: Prendre le matin", "/pdf " + pdfPath,
	}
	out, err := run(t, testApp(gen), strings.Join(full, "\n"), "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "[complet]")
	assert.FileExists(t, pdfPath)
	assert.Equal(t, "Lisinopril", gen.rec.Get(pkg.FieldMedication))
}

func TestRender(t *testing.T) {
	gen := &recordingGenerator{}
	dir := t.TempDir()
	recPath := filepath.Join(dir, "rec.json")
	outPath := filepath.Join(dir, "rx.pdf")

	require.NoError(t, os.WriteFile(recPath, []byte(`{"patientName":"Jean"}`), 0o644))
	_, err := run(t, testApp(gen), "", "render", "--record", recPath, "-o", outPath)
	var incomplete *core.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Len(t, incomplete.Missing, 6)

	out, err := run(t, testApp(gen), "", "render", "--record", recPath, "-o", outPath, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, outPath)
	assert.FileExists(t, outPath)
}

func TestWatch_NeedsDatabase(t *testing.T) {
	_, err := run(t, testApp(nil), "", "watch")
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestWatch_PrintsIDs(t *testing.T) {
	app := testApp(nil)
	app.Listen = func(context.Context) (<-chan string, error) {
		ch := make(chan string, 2)
		ch <- "s-1"
		ch <- "s-2"
		close(ch)
		return ch, nil
	}
	out, err := run(t, app, "", "watch")
	require.NoError(t, err)
	assert.Contains(t, out, "\ts-1\n")
	assert.Contains(t, out, "\ts-2\n")
}
