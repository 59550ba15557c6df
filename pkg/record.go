package pkg

import "strings"

// Field is the canonical key of one prescription field. The string value is
// also the JSON property name used across the API.
type Field string

const (
	FieldPatientName         Field = "patientName"
	FieldPatientAge          Field = "patientAge"
	FieldDiagnosis           Field = "diagnosis"
	FieldMedication          Field = "medication"
	FieldDosage              Field = "dosage"
	FieldDuration            Field = "duration"
	FieldSpecialInstructions Field = "specialInstructions"
)

// Fields lists every field in canonical order. Missing-field lists, displays
// and extraction prompts all follow this order.
var Fields = []Field{
	FieldPatientName,
	FieldPatientAge,
	FieldDiagnosis,
	FieldMedication,
	FieldDosage,
	FieldDuration,
	FieldSpecialInstructions,
}

var requiredLabels = map[Field]string{
	FieldPatientName:         "Nom du patient",
	FieldPatientAge:          "Age/Date de naissance",
	FieldDiagnosis:           "Diagnostic",
	FieldMedication:          "Medicament",
	FieldDosage:              "Posologie",
	FieldDuration:            "Duree du traitement",
	FieldSpecialInstructions: "Instructions speciales",
}

var displayLabels = map[Field]string{
	FieldPatientName:         "Nom",
	FieldPatientAge:          "Age",
	FieldDiagnosis:           "Diagnostic",
	FieldMedication:          "Medicament",
	FieldDosage:              "Posologie",
	FieldDuration:            "Duree",
	FieldSpecialInstructions: "Instructions",
}

// Label is the human-readable name used in missing-field lists.
func (f Field) Label() string { return requiredLabels[f] }

// DisplayLabel is the short name used in summaries and extraction prompts.
func (f Field) DisplayLabel() string { return displayLabels[f] }

// Valid reports whether f is one of the seven canonical fields.
func (f Field) Valid() bool {
	_, ok := requiredLabels[f]
	return ok
}

// Record is the partial prescription collected so far. A nil pointer means
// the field is not known yet; a non-nil pointer always holds a trimmed value
// that is not an absence phrase. Use Set so that invariant holds.
type Record struct {
	PatientName         *string `json:"patientName"`
	PatientAge          *string `json:"patientAge"`
	Diagnosis           *string `json:"diagnosis"`
	Medication          *string `json:"medication"`
	Dosage              *string `json:"dosage"`
	Duration            *string `json:"duration"`
	SpecialInstructions *string `json:"specialInstructions"`
}

func (r *Record) slot(f Field) **string {
	switch f {
	case FieldPatientName:
		return &r.PatientName
	case FieldPatientAge:
		return &r.PatientAge
	case FieldDiagnosis:
		return &r.Diagnosis
	case FieldMedication:
		return &r.Medication
	case FieldDosage:
		return &r.Dosage
	case FieldDuration:
		return &r.Duration
	case FieldSpecialInstructions:
		return &r.SpecialInstructions
	}
	return nil
}

// Get returns the value of f, or "" when f is not present.
func (r Record) Get(f Field) string {
	p := r.slot(f)
	if p == nil || *p == nil {
		return ""
	}
	return **p
}

// Has reports whether f is present.
func (r Record) Has(f Field) bool {
	v := r.Get(f)
	return strings.TrimSpace(v) != "" && !IsAbsent(v)
}

// Set stores v for f. Empty values and absence phrases clear the field
// instead, so "non spécifié" can never count as a value.
func (r *Record) Set(f Field, v string) {
	p := r.slot(f)
	if p == nil {
		return
	}
	v = strings.TrimSpace(v)
	if v == "" || IsAbsent(v) {
		*p = nil
		return
	}
	*p = &v
}

// Clear unsets f.
func (r *Record) Clear(f Field) {
	if p := r.slot(f); p != nil {
		*p = nil
	}
}

// MissingFields returns the labels of absent fields in canonical order. It is
// never nil so it serializes as [].
func (r Record) MissingFields() []string {
	missing := []string{}
	for _, f := range Fields {
		if !r.Has(f) {
			missing = append(missing, f.Label())
		}
	}
	return missing
}

// IsComplete reports whether every field is present.
func (r Record) IsComplete() bool { return len(r.MissingFields()) == 0 }

// Display renders the present fields, one "- Label: value" line each.
func (r Record) Display() string {
	var lines []string
	for _, f := range Fields {
		if r.Has(f) {
			lines = append(lines, "- "+f.DisplayLabel()+": "+r.Get(f))
		}
	}
	if len(lines) == 0 {
		return "Aucune info"
	}
	return strings.Join(lines, "\n")
}
