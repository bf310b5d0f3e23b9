package lookup

import (
	"sort"

	"gaokao-admissions/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Province is a province level division keyed by its administrative code,
// which is also the id the remote api uses.
type Province struct {
	ID   int
	Name string
}

var provinces = []Province{
	{11, "北京"},
	{12, "天津"},
	{13, "河北"},
	{14, "山西"},
	{15, "内蒙古"},
	{21, "辽宁"},
	{22, "吉林"},
	{23, "黑龙江"},
	{31, "上海"},
	{32, "江苏"},
	{33, "浙江"},
	{34, "安徽"},
	{35, "福建"},
	{36, "江西"},
	{37, "山东"},
	{41, "河南"},
	{42, "湖北"},
	{43, "湖南"},
	{44, "广东"},
	{45, "广西"},
	{46, "海南"},
	{50, "重庆"},
	{51, "四川"},
	{52, "贵州"},
	{53, "云南"},
	{54, "西藏"},
	{61, "陕西"},
	{62, "甘肃"},
	{63, "青海"},
	{64, "宁夏"},
	{65, "新疆"},
}

var (
	provinceByID   = map[int]string{}
	provinceByName = map[string]int{}
)

func init() {
	for _, p := range provinces {
		provinceByID[p.ID] = p.Name
		provinceByName[p.Name] = p.ID
	}
}

// Provinces returns every province ordered by id.
func Provinces() []Province {
	out := make([]Province, len(provinces))
	copy(out, provinces)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// ProvinceIDByName accepts both short ("河南") and full ("河南省") names.
func ProvinceIDByName(name string) (int, bool) {
	id, ok := provinceByName[textutil.NormalizeRegion(name)]
	return id, ok
}

func ProvinceName(id int) (string, bool) {
	name, ok := provinceByID[id]
	return name, ok
}

// Suggest returns the known province name closest to name, for "did you
// mean" messages. The similarity is 0 when nothing resembles it.
func Suggest(name string) (string, float64) {
	name = textutil.NormalizeRegion(name)

	var best string
	var bestSimilarity float64
	for _, p := range provinces {
		similarity := matchr.JaroWinkler(name, p.Name, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = p.Name
		}
	}
	return best, bestSimilarity
}
