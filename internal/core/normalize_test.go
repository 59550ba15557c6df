package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prescription-chatbot/pkg"
)

func TestNormalizeKey(t *testing.T) {
	n := NewNormalizer(DefaultLexicon())

	tests := []struct {
		label string
		want  pkg.Field
	}{
		{"Durée", pkg.FieldDuration},
		{"duree", pkg.FieldDuration},
		{"DURATION", pkg.FieldDuration},
		{"Duree du traitement", pkg.FieldDuration},
		{"Nom", pkg.FieldPatientName},
		{"Nom du patient", pkg.FieldPatientName},
		{"patientName", pkg.FieldPatientName},
		{"Age/Date de naissance", pkg.FieldPatientAge},
		{"Âge", pkg.FieldPatientAge},
		{"Diagnostique", pkg.FieldDiagnosis},
		{"Médicament", pkg.FieldMedication},
		{"Nom du médicament", pkg.FieldMedication},
		{"Posologie", pkg.FieldDosage},
		{"dosologie", pkg.FieldDosage},
		{"Dosage", pkg.FieldDosage},
		{"Instructions spéciales", pkg.FieldSpecialInstructions},
		{"Consignes", pkg.FieldSpecialInstructions},
		{"- **Posologie**", pkg.FieldDosage},
		{"3. Diagnostic", pkg.FieldDiagnosis},
		{"Posologie (dose et fréquence)", pkg.FieldDosage},
		{"Traitement prescrit", pkg.FieldMedication},
		{"Durée prévue", pkg.FieldDuration},
		{"Posologie journalière", pkg.FieldDosage},
		{"Instructions au patient", pkg.FieldSpecialInstructions},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := n.NormalizeKey(tt.label)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKey_Unknown(t *testing.T) {
	n := NewNormalizer(DefaultLexicon())
	for _, label := range []string{
		"", "Numero de securite sociale", "Allergies", "Téléphone", "**",
		"Nom du médecin", "Nom du prescripteur", "Prise de sang", "Patient allergique",
		"Traitement antérieur", "Note du médecin",
	} {
		f, ok := n.NormalizeKey(label)
		assert.False(t, ok, "%s mapped to %s", label, f)
	}
}

func TestParseFields_PrescriberNameDoesNotOverwritePatient(t *testing.T) {
	n := NewNormalizer(DefaultLexicon())
	var prior pkg.Record
	prior.Set(pkg.FieldPatientName, "Jean Dupont")

	rec := Merge(prior, ParseFields(n, "Nom du médecin: Dr Martin\nPrise de sang: demain"))

	assert.Equal(t, "Jean Dupont", rec.Get(pkg.FieldPatientName))
	assert.False(t, rec.Has(pkg.FieldDosage))
}

func TestLoadLexicon_HeadWordsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("head_words: [consigne]\n"), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	n := NewNormalizer(lex)

	f, ok := n.NormalizeKey("Consigne importante")
	require.True(t, ok)
	assert.Equal(t, pkg.FieldSpecialInstructions, f)
	_, ok = n.NormalizeKey("Remarque du pharmacien")
	assert.False(t, ok, "only listed head words match on the first word")
}

func TestNormalizer_IsAbsent(t *testing.T) {
	n := NewNormalizer(DefaultLexicon())

	for _, v := range []string{"", "  ", "aucun", "Aucune", "n/a", "N/A", "non spécifié", "Non précisé", "Absent", "inconnu", "[]", "(à préciser)", "À préciser", "TBD"} {
		assert.True(t, n.IsAbsent(v), "%q should be absent", v)
	}
	for _, v := range []string{"Jean Dupont", "45 ans", "10mg/jour", "Prendre le matin", "Naproxène 500 mg"} {
		assert.False(t, n.IsAbsent(v), "%q should be present", v)
	}
}

func TestNormalizer_LexiconAbsenceIsSupersetOfRecordRules(t *testing.T) {
	n := NewNormalizer(DefaultLexicon())
	for _, p := range pkg.DefaultAbsenceRules.Prefixes {
		assert.True(t, n.IsAbsent(p), p)
	}
}

func TestParseLexicon_RejectsUnknownField(t *testing.T) {
	_, err := ParseLexicon([]byte("fields:\n  allergies: [allergie]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allergies")
}

func TestLoadLexicon_ExtendsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  medication: [farmaco]\nabsence:\n  prefixes: [sin datos]\n"), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	n := NewNormalizer(lex)

	f, ok := n.NormalizeKey("Fármaco")
	require.True(t, ok)
	assert.Equal(t, pkg.FieldMedication, f)
	assert.True(t, n.IsAbsent("Sin datos"))

	f, ok = n.NormalizeKey("Durée")
	require.True(t, ok, "defaults are kept")
	assert.Equal(t, pkg.FieldDuration, f)
}

func TestLoadLexicon_Errors(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	lex, err := LoadLexicon("")
	require.NoError(t, err)
	assert.NotEmpty(t, lex.Fields[pkg.FieldDosage])
}

func TestWatchLexicon_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: {}\n"), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	n := NewNormalizer(lex)
	_, ok := n.NormalizeKey("Remedio")
	require.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, WatchLexicon(ctx, path, n, 10*time.Millisecond))

	require.NoError(t, os.WriteFile(path, []byte("fields:\n  medication: [remedio]\n"), 0o644))
	assert.Eventually(t, func() bool {
		f, ok := n.NormalizeKey("Remedio")
		return ok && f == pkg.FieldMedication
	}, 5*time.Second, 20*time.Millisecond)
}
