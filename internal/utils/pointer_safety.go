package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// NonEmptyPtr returns nil for the empty string, so absent optional values stay absent.
func NonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Equal compares two optional values; two nils are equal.
func Equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
