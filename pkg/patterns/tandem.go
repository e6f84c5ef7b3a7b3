package patterns

// FindPrimitiveTandemArrays returns every maximal run of at least two
// consecutive copies of a primitive period of length at most maxPeriod.
// A maxPeriod of zero or less leaves the period unbounded. Results are
// ordered by period, then start.
func FindPrimitiveTandemArrays[T comparable](trace []T, maxPeriod int) []TandemArray {
	return findTandemArrays(trace, maxPeriod, true)
}

// FindMaximalTandemArrays is FindPrimitiveTandemArrays without the
// primitivity requirement, so a period may itself be a repetition.
func FindMaximalTandemArrays[T comparable](trace []T, maxPeriod int) []TandemArray {
	return findTandemArrays(trace, maxPeriod, false)
}

func findTandemArrays[T comparable](trace []T, maxPeriod int, primitiveOnly bool) []TandemArray {
	n := len(trace)
	if maxPeriod <= 0 || maxPeriod > n/2 {
		maxPeriod = n / 2
	}

	var arrays []TandemArray
	for p := 1; p <= maxPeriod; p++ {
		for i := 0; i+2*p <= n; i++ {
			// a run is reported once, from its leftmost copy
			if i >= p && equalBlocks(trace, i-p, i, p) {
				continue
			}
			if primitiveOnly && !isPrimitive(trace[i:i+p]) {
				continue
			}

			count := 1
			for i+(count+1)*p <= n && equalBlocks(trace, i, i+count*p, p) {
				count++
			}
			if count >= 2 {
				arrays = append(arrays, TandemArray{
					Span:        Span{Start: i, Length: p},
					RepeatCount: count,
				})
			}
		}
	}
	return arrays
}

func equalBlocks[T comparable](trace []T, a, b, length int) bool {
	for k := 0; k < length; k++ {
		if trace[a+k] != trace[b+k] {
			return false
		}
	}
	return true
}

// isPrimitive reports whether w is not a power of a shorter word.
func isPrimitive[T comparable](w []T) bool {
	n := len(w)
	for d := 1; d <= n/2; d++ {
		if n%d != 0 {
			continue
		}
		power := true
		for k := d; k < n; k++ {
			if w[k] != w[k-d] {
				power = false
				break
			}
		}
		if power {
			return false
		}
	}
	return true
}
