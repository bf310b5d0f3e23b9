package merge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gaokao-admissions/services/admissions"
	"gaokao-admissions/services/admissions/sink"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func fixtures(t *testing.T) (string, Options) {
	dir := t.TempDir()

	enroll := filepath.Join(dir, "enroll_plan_aaaa0000.csv")
	writeFile(t, enroll, strings.Join([]string{
		strings.Join(admissions.EnrollPlans.Columns(), ","),
		"10459,郑州大学,河南,河南,2023,理科,本科一批,软件工程,30,四年,5000,物理",
		",,,,,,,,,,,",
		"10475,河南大学,河南,北京,2023,理科,本科一批,法学,2,四年,4400,",
	}, "\n")+"\n")

	unknown := filepath.Join(dir, "notes.csv")
	writeFile(t, unknown, "a,b,c\n1,2,3\n")

	workbook := sink.NewXLSXFile(filepath.Join(dir, "data_bbbb1111.xlsx"))
	w, err := workbook.Open(admissions.MajorScores)
	if err != nil {
		t.Fatal(err)
	}
	require.NoError(t, w.Append(admissions.MajorScore{
		Code:      "10459",
		Name:      "郑州大学",
		Year:      2022,
		MajorName: "临床医学",
		AvgScore:  "612",
	}))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())
	require.NoError(t, workbook.Close())

	return dir, Options{
		CSV:  []string{enroll, unknown},
		XLSX: []string{workbook.Path()},
	}
}

func TestCollect(t *testing.T) {
	_, opts := fixtures(t)

	collection, err := Collect(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, collection[admissions.EnrollPlans], 2)
	require.Len(t, collection[admissions.MajorScores], 1)
	require.Empty(t, collection[admissions.ProvinceScores])

	major := collection[admissions.MajorScores][0].Values()
	require.Len(t, major, 11)
	require.Equal(t, "临床医学", major[6])
	require.Equal(t, "2022", major[4])

	opts.KeepEmpty = true
	collection, err = Collect(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, collection[admissions.EnrollPlans], 3)
}

func TestCollectLegacyCSVHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enroll_plan_eeee4444.csv")
	writeFile(t, path, "\ufeff"+strings.Join([]string{
		"code,name,located_province,target_province,year,major,enroll_level,major_name,planned_number,duration,tuition,major_requirements",
		"10459,郑州大学,河南,河南,2021,理科,本科一批,临床医学,120,五年,6000,",
	}, "\n")+"\n")

	collection, err := Collect(context.Background(), Options{CSV: []string{path}})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, collection[admissions.EnrollPlans], 1)

	values := collection[admissions.EnrollPlans][0].Values()
	require.Equal(t, "临床医学", values[7])
	require.Equal(t, "120", values[8])
}

func TestCollectRequiresInput(t *testing.T) {
	_, err := Collect(context.Background(), Options{})
	require.Error(t, err)
}

func TestWriteConvertsToXLSX(t *testing.T) {
	dir, opts := fixtures(t)
	ctx := context.Background()

	collection, err := Collect(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}

	out, err := sink.NewXLSX(filepath.Join(dir, "out"), "cccc2222")
	if err != nil {
		t.Fatal(err)
	}
	summary, err := Write(ctx, collection, out)
	if err != nil {
		t.Fatal(err)
	}
	require.NoError(t, out.Close())
	require.Equal(t, 3, summary.Rows())

	f, err := excelize.OpenFile(out.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	require.Equal(t, []string{"各专业招生计划", "分专业录取分数线"}, f.GetSheetList())
	rows, err := f.GetRows("各专业招生计划")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, rows, 3)
	require.Equal(t, "河南大学", rows[2][1])
}

func TestWriteConvertsToCSV(t *testing.T) {
	dir, opts := fixtures(t)
	ctx := context.Background()

	collection, err := Collect(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")
	out, err := sink.NewCSV(outDir, "dddd3333")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Write(ctx, collection, out)
	if err != nil {
		t.Fatal(err)
	}

	require.FileExists(t, sink.CSVPath(outDir, admissions.MajorScores, "dddd3333"))
	require.FileExists(t, sink.CSVPath(outDir, admissions.EnrollPlans, "dddd3333"))
	require.NoFileExists(t, sink.CSVPath(outDir, admissions.ProvinceScores, "dddd3333"))

	again, err := Collect(ctx, Options{CSV: []string{sink.CSVPath(outDir, admissions.MajorScores, "dddd3333")}})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, collection[admissions.MajorScores], again[admissions.MajorScores])
}
