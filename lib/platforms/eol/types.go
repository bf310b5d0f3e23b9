package eol

// Logical endpoints of the query api.
const (
	URISchoolList = "apidata/api/gk/school/lists"
	URIPlan       = "apidata/api/gkv3/plan/school"
	URIMajorScore = "apidata/api/gk/score/special"
)

// School is one item of URISchoolList.
type School struct {
	SchoolID     Int    `json:"school_id"`
	CodeEnroll   string `json:"code_enroll"`
	Name         string `json:"name"`
	ProvinceID   Int    `json:"province_id"`
	ProvinceName string `json:"province_name"`
}

// ProvinceScoreItem is one row of schoolprovinceindex/.../1.json.
type ProvinceScoreItem struct {
	BatchName    Text `json:"local_batch_name"`
	EnrollType   Text `json:"zslx_name"`
	Min          Text `json:"min"`
	MinSection   Text `json:"min_section"`
	ControlLine  Text `json:"proscore"`
	GroupName    Text `json:"sg_name"`
	Requirements Text `json:"sg_info"`
}

// PlanItem is one item of URIPlan.
type PlanItem struct {
	BatchName    Text `json:"local_batch_name"`
	MajorName    Text `json:"spname"`
	Planned      Text `json:"num"`
	Length       Text `json:"length"`
	Tuition      Text `json:"tuition"`
	Requirements Text `json:"sp_info"`
}

// MajorScoreItem is one item of URIMajorScore.
type MajorScoreItem struct {
	BatchName    Text `json:"local_batch_name"`
	MajorName    Text `json:"spname"`
	Average      Text `json:"average"`
	Min          Text `json:"min"`
	MinSection   Text `json:"min_section"`
	Requirements Text `json:"sp_info"`
}
