package infra

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is a constraint that permits any unsigned integer type.
// If future releases of Go add new predeclared unsigned integer types,
// this constraint will be modified to include them.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer is a constraint that permits any integer type.
// If future releases of Go add new predeclared integer types,
// this constraint will be modified to include them.
type Integer interface {
	Signed | Unsigned
}

// Float is a constraint that permits any floating-point type.
// If future releases of Go add new predeclared floating-point types,
// this constraint will be modified to include them.
type Float interface {
	~float32 | ~float64
}

// OrderedKey
// byte => ~uint8
type OrderedKey interface {
	Integer | Float | ~string
}

// LessFn is a strict weak ordering over keys.
// Two keys are equivalent if neither is less than the other.
type LessFn[K any] func(i, j K) bool

// OrderedLess is the natural ascending order of ordered keys.
func OrderedLess[K OrderedKey](i, j K) bool {
	return i < j
}

// Comparator
// Assume i is the new key.
//  1. i == j (i-j == 0, return 0)
//  2. i > j (i-j > 0, return 1), turn to right part.
//  3. i < j (i-j < 0, return -1), turn to left part.
type Comparator[K any] func(i, j K) int64

// Less converts the three-way comparator into a strict weak ordering.
func (cmp Comparator[K]) Less() LessFn[K] {
	return func(i, j K) bool {
		return cmp(i, j) < 0
	}
}

// Reverse flips the order of less.
func Reverse[K any](less LessFn[K]) LessFn[K] {
	return func(i, j K) bool {
		return less(j, i)
	}
}
