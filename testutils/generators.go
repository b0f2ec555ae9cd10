package testutils

import (
	"github.com/brianvoe/gofakeit/v7"
)

// DemandSequence returns n request sizes between 0 and max inclusive. The sequence is reproducible for a seed.
func DemandSequence(seed uint64, n int, max int) []int64 {
	faker := gofakeit.New(seed)
	sizes := make([]int64, n)
	for i := range sizes {
		sizes[i] = int64(faker.IntRange(0, max))
	}
	return sizes
}

// IntSequence returns the integers 1 to n.
func IntSequence(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i + 1
	}
	return items
}

// WordSequence returns n random words. The sequence is reproducible for a seed.
func WordSequence(seed uint64, n int) []string {
	faker := gofakeit.New(seed)
	words := make([]string, n)
	for i := range words {
		words[i] = faker.Word()
	}
	return words
}
