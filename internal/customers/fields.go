package customers

// FieldSet is the allow-list of extracted-field names that map to fixed
// customer columns. Everything outside the set is a custom field.
type FieldSet map[string]struct{}

// Universal field names shared by every extraction profile. Both "phone"
// and "phone_number" appear because the voice agent has used both spellings.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldPhone           = "phone"
	FieldPhoneNumber     = "phone_number"
	FieldEmail           = "email"
	FieldAppointmentTime = "appointment_time"
	FieldDay             = "day"
	FieldMonth           = "month"

	// FieldBusinessName is injected silently into org-wide extractions for
	// call attribution; it is never persisted as spoken content.
	FieldBusinessName = "business_name"
)

// DefaultUniversalFields returns the standard allow-list.
func DefaultUniversalFields() FieldSet {
	return FieldSet{
		FieldFirstName:       {},
		FieldLastName:        {},
		FieldPhone:           {},
		FieldPhoneNumber:     {},
		FieldEmail:           {},
		FieldAppointmentTime: {},
		FieldDay:             {},
		FieldMonth:           {},
	}
}

// With returns a copy of the set extended with extra field names.
func (s FieldSet) With(names ...string) FieldSet {
	out := make(FieldSet, len(s)+len(names))
	for name := range s {
		out[name] = struct{}{}
	}
	for _, name := range names {
		out[name] = struct{}{}
	}
	return out
}

// Split partitions extracted fields into universal and custom mappings.
// Every input key lands in exactly one output; unknown keys are kept as
// custom fields, never dropped. A nil input yields two empty maps.
func (s FieldSet) Split(fields map[string]string) (universal, custom map[string]string) {
	universal = make(map[string]string)
	custom = make(map[string]string)
	for key, value := range fields {
		if _, ok := s[key]; ok {
			universal[key] = value
		} else {
			custom[key] = value
		}
	}
	return universal, custom
}
