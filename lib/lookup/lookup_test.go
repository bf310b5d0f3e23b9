package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProvinceTable(t *testing.T) {
	all := Provinces()
	require.Len(t, all, 31)
	require.Equal(t, Province{ID: 11, Name: "北京"}, all[0])
	require.Equal(t, Province{ID: 65, Name: "新疆"}, all[30])

	for _, p := range all {
		name, ok := ProvinceName(p.ID)
		require.True(t, ok)
		require.Equal(t, p.Name, name)

		id, ok := ProvinceIDByName(name)
		require.True(t, ok)
		require.Equal(t, p.ID, id)
	}
}

func TestProvinceIDByFullName(t *testing.T) {
	cases := map[string]int{
		"河南省":      41,
		"广西壮族自治区":  45,
		"新疆维吾尔自治区": 65,
		"宁夏回族自治区":  64,
		"内蒙古自治区":   15,
		"北京市":      11,
		" 湖 北 ":    42,
	}
	for name, expected := range cases {
		id, ok := ProvinceIDByName(name)
		require.True(t, ok, name)
		require.Equal(t, expected, id, name)
	}

	_, ok := ProvinceIDByName("台湾")
	require.False(t, ok)
	_, ok = ProvinceName(99)
	require.False(t, ok)
}

func TestSuggest(t *testing.T) {
	name, similarity := Suggest("黑龙")
	require.Equal(t, "黑龙江", name)
	require.Greater(t, similarity, 0.5)

	_, similarity = Suggest("zzz")
	require.Zero(t, similarity)
}

type fakeSource struct {
	names map[string]string
	err   error
}

func (f fakeSource) CategoryDictionary(context.Context) (map[string]string, error) {
	return f.names, f.err
}

func TestDictionary(t *testing.T) {
	dict, err := LoadDictionary(context.Background(), fakeSource{
		names: map[string]string{"1": "理科", "2": "文科", "2073": "物理类"},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 3, dict.Len())
	require.Equal(t, "理科", dict.CategoryName(1))
	require.Equal(t, "物理类", dict.CategoryName(2073))
	require.Equal(t, "3", dict.CategoryName(3))

	boom := errors.New("boom")
	_, err = LoadDictionary(context.Background(), fakeSource{err: boom})
	require.ErrorIs(t, err, boom)
}
