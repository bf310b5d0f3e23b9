package admissions

import (
	"fmt"
	"strconv"
	"strings"
)

// Report is one of the three row sets a run can produce.
type Report int

const (
	ProvinceScores Report = iota
	EnrollPlans
	MajorScores
)

// AllReports is the order reports run in when none are selected.
var AllReports = []Report{ProvinceScores, EnrollPlans, MajorScores}

type reportInfo struct {
	name     string
	alias    string
	sheet    string
	columns  []string
	headings []string
	// legacyColumns is the header earlier releases wrote, still accepted on read.
	legacyColumns []string
}

var reportTable = map[Report]reportInfo{
	ProvinceScores: {
		name:  "min_score",
		alias: "province",
		sheet: "学校分数线",
		columns: []string{
			"code", "name", "located_province", "target_province",
			"category", "year", "batch", "enroll_type",
			"min_score_rank", "control_line", "subject_group", "subject_requirements",
		},
		legacyColumns: []string{
			"code", "name", "located_province", "target_province",
			"major", "year", "enroll_level", "enroll_type",
			"minium_score_and_rank", "prov_minium_score", "major_group", "major_requirements",
		},
		headings: []string{
			"学校代码", "学校名称全称", "所在省份", "面向省份",
			"科类", "年份", "录取批次", "招生类型",
			"最低分/最低位次", "省控线", "专业组", "选科要求",
		},
	},
	EnrollPlans: {
		name:  "enroll_plan",
		alias: "enroll",
		sheet: "各专业招生计划",
		columns: []string{
			"code", "name", "located_province", "target_province",
			"year", "category", "batch", "major_name",
			"planned_number", "duration", "tuition", "subject_requirements",
		},
		legacyColumns: []string{
			"code", "name", "located_province", "target_province",
			"year", "major", "enroll_level", "major_name",
			"planned_number", "duration", "tuition", "major_requirements",
		},
		headings: []string{
			"学校代码", "学校名称全称", "所在省份", "面向省份",
			"年份", "科类", "招生批次", "招生专业名称",
			"计划招生", "学制", "学费", "选科要求",
		},
	},
	MajorScores: {
		name:  "major_score",
		alias: "major",
		sheet: "分专业录取分数线",
		columns: []string{
			"code", "name", "located_province", "target_province",
			"year", "category", "major_name", "batch",
			"avg_score", "min_score_rank", "subject_requirements",
		},
		legacyColumns: []string{
			"code", "name", "located_province", "target_province",
			"year", "major", "major_name", "enroll_level",
			"avg_score", "minium_score_and_rank", "major_requirements",
		},
		headings: []string{
			"学校代码", "学校名称全称", "所在省份", "面向省份",
			"年份", "科类", "录取专业名称", "录取批次",
			"平均分", "最低分/最低位次", "选科要求",
		},
	},
}

func (r Report) info() reportInfo {
	info, ok := reportTable[r]
	if !ok {
		panic(fmt.Sprintf("unknown report %d", int(r)))
	}
	return info
}

// String is also the prefix of the report's csv file.
func (r Report) String() string {
	info, ok := reportTable[r]
	if !ok {
		return fmt.Sprintf("Report(%d)", int(r))
	}
	return info.name
}

// SheetName is the worksheet the report lives in inside a workbook.
func (r Report) SheetName() string {
	return r.info().sheet
}

// Columns are the machine readable header names, in row order.
func (r Report) Columns() []string {
	return append([]string(nil), r.info().columns...)
}

// Headings are the human readable header names used in workbooks.
func (r Report) Headings() []string {
	return append([]string(nil), r.info().headings...)
}

// ParseReport accepts a report's name ("enroll_plan") or its short alias ("enroll").
func ParseReport(s string) (Report, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range AllReports {
		info := r.info()
		if s == info.name || s == info.alias {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown report %q, expected one of min_score, enroll_plan, major_score", s)
}

// ReportBySheet finds the report stored in a worksheet of the given name.
func ReportBySheet(sheet string) (Report, bool) {
	for _, r := range AllReports {
		if r.info().sheet == sheet {
			return r, true
		}
	}
	return 0, false
}

// ReportByColumns finds the report whose csv header is exactly columns,
// either the current header or the one earlier releases wrote.
func ReportByColumns(columns []string) (Report, bool) {
	for _, r := range AllReports {
		info := r.info()
		if sameColumns(info.columns, columns) || sameColumns(info.legacyColumns, columns) {
			return r, true
		}
	}
	return 0, false
}

func sameColumns(expected, columns []string) bool {
	if len(expected) != len(columns) {
		return false
	}
	for i := range expected {
		if expected[i] != strings.TrimSpace(columns[i]) {
			return false
		}
	}
	return true
}

// Record is one output row.
type Record interface {
	Report() Report
	// Values are the fields in Report().Columns() order.
	Values() []string
}

type ProvinceScore struct {
	Code                string
	Name                string
	LocatedProvince     string
	TargetProvince      string
	Category            string
	Year                int
	Batch               string
	EnrollType          string
	MinScoreRank        string
	ControlLine         string
	SubjectGroup        string
	SubjectRequirements string
}

func (ProvinceScore) Report() Report { return ProvinceScores }

func (r ProvinceScore) Values() []string {
	return []string{
		r.Code, r.Name, r.LocatedProvince, r.TargetProvince,
		r.Category, strconv.Itoa(r.Year), r.Batch, r.EnrollType,
		r.MinScoreRank, r.ControlLine, r.SubjectGroup, r.SubjectRequirements,
	}
}

type EnrollPlan struct {
	Code                string
	Name                string
	LocatedProvince     string
	TargetProvince      string
	Year                int
	Category            string
	Batch               string
	MajorName           string
	PlannedNumber       string
	Duration            string
	Tuition             string
	SubjectRequirements string
}

func (EnrollPlan) Report() Report { return EnrollPlans }

func (r EnrollPlan) Values() []string {
	return []string{
		r.Code, r.Name, r.LocatedProvince, r.TargetProvince,
		strconv.Itoa(r.Year), r.Category, r.Batch, r.MajorName,
		r.PlannedNumber, r.Duration, r.Tuition, r.SubjectRequirements,
	}
}

type MajorScore struct {
	Code                string
	Name                string
	LocatedProvince     string
	TargetProvince      string
	Year                int
	Category            string
	MajorName           string
	Batch               string
	AvgScore            string
	MinScoreRank        string
	SubjectRequirements string
}

func (MajorScore) Report() Report { return MajorScores }

func (r MajorScore) Values() []string {
	return []string{
		r.Code, r.Name, r.LocatedProvince, r.TargetProvince,
		strconv.Itoa(r.Year), r.Category, r.MajorName, r.Batch,
		r.AvgScore, r.MinScoreRank, r.SubjectRequirements,
	}
}

// Row is a record read back from a previous run's output.
type Row struct {
	report Report
	values []string
}

// NewRow pads short rows with empty fields, spreadsheets drop trailing
// empty cells. Rows longer than the report's column count are rejected.
func NewRow(report Report, values []string) (Row, error) {
	width := len(report.info().columns)
	if len(values) > width {
		return Row{}, fmt.Errorf(
			"%s row has %d fields, expected at most %d",
			report, len(values), width,
		)
	}
	padded := make([]string, width)
	copy(padded, values)
	return Row{report: report, values: padded}, nil
}

func (r Row) Report() Report { return r.report }

func (r Row) Values() []string {
	return append([]string(nil), r.values...)
}

// Empty reports whether every field is blank.
func (r Row) Empty() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
