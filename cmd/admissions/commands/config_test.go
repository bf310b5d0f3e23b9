package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gaokao-admissions/services/admissions"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "admissions.json5"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, defaultConfig(), cfg)

	plan, err := cfg.plan()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 41, plan.provinceID)
	require.Equal(t, admissions.AllReports, plan.reports)
	require.Equal(t, 10*time.Second, plan.queryInterval)
	require.Equal(t, 120*time.Second, plan.retryInterval)
	require.Nil(t, plan.list.PageRange)
	require.Equal(t, []string{"csv", "xlsx"}, plan.formats)
}

func TestLoadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "admissions.json5", `{
		// the province to scrape
		province: "湖北省",
		reports: ["enroll"],
		query_interval_seconds: 12.5,
		output: { dir: "out" },
	}`)
	writeConfig(t, dir, "admissions.local.json5", `{
		item_offset: 7,
		page_range: [2, 4],
		output: { formats: ["csv"] },
	}`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "out", cfg.Output.Dir)
	require.Equal(t, []string{"csv"}, cfg.Output.Formats)
	require.Equal(t, 2020, cfg.YearSince)

	plan, err := cfg.plan()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 42, plan.provinceID)
	require.Equal(t, []admissions.Report{admissions.EnrollPlans}, plan.reports)
	require.Equal(t, 12500*time.Millisecond, plan.queryInterval)
	require.Equal(t, 7, plan.list.ItemOffset)
	require.Equal(t, &[2]int{2, 4}, plan.list.PageRange)
}

func TestPlanRejectsBadConfig(t *testing.T) {
	cases := map[string]func(c *Config){
		"province":   func(c *Config) { c.Province = "黑龙" },
		"page range": func(c *Config) { c.PageRange = []int{3} },
		"reversed":   func(c *Config) { c.PageRange = []int{4, 2} },
		"report":     func(c *Config) { c.Reports = []string{"scores"} },
		"format":     func(c *Config) { c.Output.Formats = []string{"json"} },
		"sqlite":     func(c *Config) { c.Output.Formats = []string{"sqlite"} },
		"offset":     func(c *Config) { c.ItemOffset = -1 },
	}
	for name, mutate := range cases {
		cfg := defaultConfig()
		mutate(&cfg)
		_, err := cfg.plan()
		require.Error(t, err, name)
	}

	cfg := defaultConfig()
	cfg.Province = "黑龙"
	_, err := cfg.plan()
	require.ErrorContains(t, err, `did you mean "黑龙江"`)
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	var flags Config
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVarP(&flags.Province, "province", "p", "", "")
	cmd.Flags().IntVar(&flags.YearSince, "year-since", 0, "")
	cmd.Flags().IntVar(&flags.ItemOffset, "item-offset", 0, "")
	cmd.Flags().StringSliceVarP(&flags.Reports, "report", "r", nil, "")

	err := cmd.Flags().Parse([]string{"--province", "北京", "--item-offset", "0", "-r", "major,enroll"})
	if err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig()
	cfg.ItemOffset = 12
	applyFlags(cmd, &cfg, flags)

	require.Equal(t, "北京", cfg.Province)
	require.Equal(t, 2020, cfg.YearSince)
	require.Equal(t, 0, cfg.ItemOffset)
	require.Equal(t, []string{"major", "enroll"}, cfg.Reports)
}
