package eol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubPageSize(t *testing.T) {
	cases := map[int]int{
		2:  1,
		3:  1,
		4:  2,
		5:  1,
		9:  3,
		15: 5,
		20: 10,
		30: 15,
		97: 1,
	}
	for size, expected := range cases {
		require.Equal(t, expected, subPageSize(size), "size %d", size)
	}
}

func TestSubPages(t *testing.T) {
	cases := []struct {
		page, size, subSize int
		expected            []int
	}{
		{page: 1, size: 30, subSize: 15, expected: []int{1, 2}},
		{page: 3, size: 30, subSize: 15, expected: []int{5, 6}},
		{page: 3, size: 15, subSize: 5, expected: []int{7, 8, 9}},
		{page: 2, size: 5, subSize: 1, expected: []int{6, 7, 8, 9, 10}},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, subPages(c.page, c.size, c.subSize))
	}

	// even sizes always map page p onto 2p-1 and 2p
	for p := 1; p < 10; p++ {
		require.Equal(t, []int{2*p - 1, 2 * p}, subPages(p, 30, subPageSize(30)))
	}
}
