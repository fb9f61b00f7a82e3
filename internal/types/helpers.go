package types

// ToNillableString maps an empty string to nil so optional columns stay NULL
func ToNillableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FromNillableString unwraps an optional string, treating nil as empty
func FromNillableString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
