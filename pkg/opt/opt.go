// Package opt provides small helpers for working with optional values
// represented as pointers.
package opt

// Map applies fn to the value pointed to by v and returns a pointer to the
// result. A nil input returns nil without calling fn.
func Map[T, U any](v *T, fn func(T) U) *U {
	if v == nil {
		return nil
	}
	u := fn(*v)
	return &u
}

// Ptr returns a pointer to v. Useful for building optional literals.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value pointed to by v, or the zero value when v is nil.
func Deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// DerefOr returns the value pointed to by v, or fallback when v is nil.
func DerefOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
