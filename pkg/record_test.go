package pkg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRecord() Record {
	var r Record
	r.Set(FieldPatientName, "Jean Dupont")
	r.Set(FieldPatientAge, "45")
	r.Set(FieldDiagnosis, "Hypertension")
	r.Set(FieldMedication, "Lisinopril")
	r.Set(FieldDosage, "10mg/jour")
	r.Set(FieldDuration, "30 jours")
	r.Set(FieldSpecialInstructions, "Prendre le matin")
	return r
}

func TestRecord_EmptyIsIncomplete(t *testing.T) {
	var r Record
	assert.False(t, r.IsComplete())
	assert.Equal(t, []string{
		"Nom du patient",
		"Age/Date de naissance",
		"Diagnostic",
		"Medicament",
		"Posologie",
		"Duree du traitement",
		"Instructions speciales",
	}, r.MissingFields())
	assert.Equal(t, "Aucune info", r.Display())
}

func TestRecord_CompleteIffNoMissingFields(t *testing.T) {
	records := []Record{{}, fullRecord()}
	partial := fullRecord()
	partial.Clear(FieldDosage)
	records = append(records, partial)
	onlyName := Record{}
	onlyName.Set(FieldPatientName, "Alice")
	records = append(records, onlyName)

	for _, r := range records {
		assert.Equal(t, r.IsComplete(), len(r.MissingFields()) == 0)
	}
	assert.True(t, fullRecord().IsComplete())
	assert.Equal(t, []string{"Posologie"}, partial.MissingFields())
}

func TestRecord_SetTreatsAbsenceAsUnset(t *testing.T) {
	var r Record
	r.Set(FieldDiagnosis, "   ")
	assert.Nil(t, r.Diagnosis)

	r.Set(FieldDiagnosis, "Non spécifié")
	assert.Nil(t, r.Diagnosis)

	r.Set(FieldDiagnosis, "  Migraine chronique ")
	require.NotNil(t, r.Diagnosis)
	assert.Equal(t, "Migraine chronique", *r.Diagnosis)

	r.Set(FieldDiagnosis, "aucun")
	assert.Nil(t, r.Diagnosis, "an absence phrase clears a previous value through Set")
}

func TestRecord_HandWrittenAbsenceIsNotPresent(t *testing.T) {
	v := "N/A"
	r := Record{Dosage: &v}
	assert.False(t, r.Has(FieldDosage))
	assert.Contains(t, r.MissingFields(), "Posologie")
}

func TestRecord_Display(t *testing.T) {
	var r Record
	r.Set(FieldPatientName, "John")
	r.Set(FieldPatientAge, "45")
	r.Set(FieldDiagnosis, "Hypertension")

	assert.Equal(t, "- Nom: John\n- Age: 45\n- Diagnostic: Hypertension", r.Display())
}

func TestRecord_JSONUsesNullForUnknownFields(t *testing.T) {
	var r Record
	r.Set(FieldPatientName, "Jane Smith")

	blob, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(blob, &raw))
	assert.Len(t, raw, 7)
	assert.Equal(t, "Jane Smith", raw["patientName"])
	assert.Nil(t, raw["specialInstructions"])
	_, ok := raw["specialInstructions"]
	assert.True(t, ok)
}

func TestField_Valid(t *testing.T) {
	for _, f := range Fields {
		assert.True(t, f.Valid(), f)
		assert.NotEmpty(t, f.Label())
		assert.NotEmpty(t, f.DisplayLabel())
	}
	assert.False(t, Field("allergies").Valid())
}
