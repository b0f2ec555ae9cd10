package utils

func ValueOrFallback[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}

func ToPtr[T any](v T) *T {
	return &v
}
