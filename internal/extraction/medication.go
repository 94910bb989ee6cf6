// Package extraction turns the text of a prescription label into a fixed
// five-field medication record.
package extraction

// Sentinel values used instead of empty or missing fields.
const (
	NotIdentified      = "Not identified"
	NoSetDuration      = "No set duration"
	NotApplicable      = "Not applicable"
	ErrorNotIdentified = "Not identified because of error"
)

// Field keys, in the order the record is reported.
const (
	FieldMedicineName    = "medicine_name"
	FieldDosage          = "dosage"
	FieldFrequency       = "frequency"
	FieldDuration        = "duration"
	FieldAdditionalNotes = "additional_notes"
)

// MedicationInfo is the extracted record. Every field is always non-empty.
type MedicationInfo struct {
	MedicineName    string `json:"medicine_name"`
	Dosage          string `json:"dosage"`
	Frequency       string `json:"frequency"`
	Duration        string `json:"duration"`
	AdditionalNotes string `json:"additional_notes"`
}

// ErrorRecord is returned whenever extraction fails.
func ErrorRecord() MedicationInfo {
	return MedicationInfo{
		MedicineName:    ErrorNotIdentified,
		Dosage:          ErrorNotIdentified,
		Frequency:       ErrorNotIdentified,
		Duration:        ErrorNotIdentified,
		AdditionalNotes: ErrorNotIdentified,
	}
}

// EmptyRecord is the record for text that carries no medication details.
func EmptyRecord() MedicationInfo {
	return MedicationInfo{
		MedicineName:    NotIdentified,
		Dosage:          NotIdentified,
		Frequency:       NotIdentified,
		Duration:        NoSetDuration,
		AdditionalNotes: NotApplicable,
	}
}

// IsErrorRecord reports whether m is the ErrorRecord.
func (m MedicationInfo) IsErrorRecord() bool {
	return m == ErrorRecord()
}

// Fields returns the record keyed by its JSON field names.
func (m MedicationInfo) Fields() map[string]string {
	return map[string]string{
		FieldMedicineName:    m.MedicineName,
		FieldDosage:          m.Dosage,
		FieldFrequency:       m.Frequency,
		FieldDuration:        m.Duration,
		FieldAdditionalNotes: m.AdditionalNotes,
	}
}

// sentinelFor is the value a blank field is replaced with.
func sentinelFor(field string) string {
	switch field {
	case FieldDuration:
		return NoSetDuration
	case FieldAdditionalNotes:
		return NotApplicable
	default:
		return NotIdentified
	}
}
