package catalog

// quantity.go provides explicit absent-value markers for numeric fields.
//
// CSS3.0 encodes missing values as in-band sentinels (-999.0 depth, -1 ids,
// -9999999999.999 epoch times). Those sentinels must never leak into the
// graph as real values, and zero is a legitimate value for almost every
// field (depth, rake, longitude), so absence is tracked with a Valid flag
// instead of a magic number.

// OptFloat is a float64 that may be absent.
type OptFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a present OptFloat.
func Float(v float64) OptFloat {
	return OptFloat{Float64: v, Valid: true}
}

// OptInt is an int64 that may be absent.
type OptInt struct {
	Int64 int64
	Valid bool
}

// Int returns a present OptInt.
func Int(v int64) OptInt {
	return OptInt{Int64: v, Valid: true}
}
