package commands

import (
	"fmt"
	"strings"
	"time"

	"gaokao-admissions/lib/configutil"
	configlibsql "gaokao-admissions/lib/configutil/libsql"
	"gaokao-admissions/lib/lookup"
	"gaokao-admissions/lib/notify"
	"gaokao-admissions/services/admissions"
)

type OutputConfig struct {
	Dir string `json:"dir"`
	// any of "csv", "xlsx", "sqlite"
	Formats []string            `json:"formats"`
	SQLite  configlibsql.Struct `json:"sqlite"`
}

type ApiConfig struct {
	QueryUrl          string  `json:"query_url"`
	StaticUrl         string  `json:"static_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	// DumpHttp is a directory every request/response pair is written to.
	DumpHttp string `json:"dump_http"`
}

type Config struct {
	Province             string   `json:"province"`
	YearSince            int      `json:"year_since"`
	QueryIntervalSeconds float64  `json:"query_interval_seconds"`
	RetryIntervalSeconds float64  `json:"retry_interval_seconds"`
	PageRange            []int    `json:"page_range"`
	ItemOffset           int      `json:"item_offset"`
	Keyword              string   `json:"keyword"`
	Reports              []string `json:"reports"`

	Output OutputConfig  `json:"output"`
	Api    ApiConfig     `json:"api"`
	Notify notify.Config `json:"notify"`
}

func defaultConfig() Config {
	return Config{
		Province:             "河南",
		YearSince:            2020,
		QueryIntervalSeconds: 10,
		RetryIntervalSeconds: 120,
		Reports:              []string{"min_score", "enroll_plan", "major_score"},
		Output: OutputConfig{
			Dir:     ".",
			Formats: []string{"csv", "xlsx"},
		},
		Api: ApiConfig{
			TimeoutSeconds: 60,
		},
	}
}

func loadConfig(path string) (Config, error) {
	return configutil.ReadWithDefaults(path, defaultConfig())
}

// scrapePlan is a validated Config.
type scrapePlan struct {
	provinceID    int
	reports       []admissions.Report
	list          admissions.ListOptions
	queryInterval time.Duration
	retryInterval time.Duration
	formats       []string
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c Config) plan() (scrapePlan, error) {
	provinceID, ok := lookup.ProvinceIDByName(c.Province)
	if !ok {
		suggestion, similarity := lookup.Suggest(c.Province)
		if similarity > 0 {
			return scrapePlan{}, fmt.Errorf("unknown province %q, did you mean %q?", c.Province, suggestion)
		}
		return scrapePlan{}, fmt.Errorf("unknown province %q", c.Province)
	}

	out := scrapePlan{
		provinceID:    provinceID,
		queryInterval: seconds(c.QueryIntervalSeconds),
		retryInterval: seconds(c.RetryIntervalSeconds),
		list: admissions.ListOptions{
			ItemOffset: c.ItemOffset,
			Keyword:    c.Keyword,
		},
	}
	if c.ItemOffset < 0 {
		return scrapePlan{}, fmt.Errorf("item offset must not be negative, got %d", c.ItemOffset)
	}
	if c.QueryIntervalSeconds < 0 || c.RetryIntervalSeconds < 0 {
		return scrapePlan{}, fmt.Errorf("intervals must not be negative")
	}

	switch len(c.PageRange) {
	case 0:
	case 2:
		if c.PageRange[0] > c.PageRange[1] {
			return scrapePlan{}, fmt.Errorf("page range %v is empty", c.PageRange)
		}
		out.list.PageRange = &[2]int{c.PageRange[0], c.PageRange[1]}
	default:
		return scrapePlan{}, fmt.Errorf("page range needs exactly two pages, got %v", c.PageRange)
	}

	seen := map[admissions.Report]bool{}
	for _, name := range c.Reports {
		report, err := admissions.ParseReport(name)
		if err != nil {
			return scrapePlan{}, err
		}
		if seen[report] {
			continue
		}
		seen[report] = true
		out.reports = append(out.reports, report)
	}
	if len(out.reports) == 0 {
		return scrapePlan{}, fmt.Errorf("no reports selected")
	}

	for _, format := range c.Output.Formats {
		format = strings.ToLower(strings.TrimSpace(format))
		switch format {
		case "csv", "xlsx":
		case "sqlite":
			if !c.Output.SQLite.Enabled() {
				return scrapePlan{}, fmt.Errorf("sqlite output needs output.sqlite.file or output.sqlite.url")
			}
		default:
			return scrapePlan{}, fmt.Errorf("unknown output format %q", format)
		}
		out.formats = append(out.formats, format)
	}
	if len(out.formats) == 0 {
		return scrapePlan{}, fmt.Errorf("no output formats selected")
	}

	return out, nil
}
