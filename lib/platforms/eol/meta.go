package eol

import (
	"fmt"
	"strconv"
)

// Dimensions is the "newsdata" tree of a school's metadata: which
// (province, year, category, batch) combinations have data.
type Dimensions struct {
	// Province is ordered by the server, that order is kept in the output.
	Province []Int `json:"province"`
	// keyed by "<province>"
	Year IDIndex `json:"year"`
	// keyed by "<province>_<year>"
	Type IDIndex `json:"type"`
	// keyed by "<province>_<year>_<category>", only present in plan metadata
	Batch IDIndex `json:"batch"`
}

func (d Dimensions) Provinces() []int {
	return ints(d.Province)
}

func (d Dimensions) Years(province int) []int {
	return ints(d.Year[strconv.Itoa(province)])
}

func (d Dimensions) Categories(province, year int) []int {
	return ints(d.Type[fmt.Sprintf("%d_%d", province, year)])
}

func (d Dimensions) Batches(province, year, category int) []int {
	return ints(d.Batch[fmt.Sprintf("%d_%d_%d", province, year, category)])
}

// Metadata is the payload of school/<id>/dic/*.json.
type Metadata struct {
	Dimensions Dimensions `json:"newsdata"`
}
