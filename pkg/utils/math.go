package utils

// CeilDiv returns the ceiling of a divided by b. Zero or negative a yields 0;
// b must be positive.
func CeilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
