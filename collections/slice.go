package collections

import "sort"

// TransformSlice maps every element of slice through transformFn. An empty
// input gives a nil result.
func TransformSlice[TInput any, TOutput any](slice []TInput, transformFn func(TInput) TOutput) []TOutput {
	var result []TOutput
	for _, val := range slice {
		result = append(result, transformFn(val))
	}
	return result
}

// SortStable returns a sorted copy of slice; elements that compare equal keep
// their input order. The input is not modified.
func SortStable[T any](slice []T, lessFn func(T, T) bool) []T {
	result := make([]T, len(slice))
	copy(result, slice)
	sort.SliceStable(result, func(ii, jj int) bool {
		return lessFn(result[ii], result[jj])
	})
	return result
}
