package admissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gaokao-admissions/lib/lookup"
	"gaokao-admissions/lib/platforms/eol"
	"gaokao-admissions/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("services/admissions")

// StaticSource is the part of eol.StaticClient the walker depends on.
type StaticSource interface {
	ProvinceScoreMeta(ctx context.Context, schoolID int) (eol.Metadata, error)
	SpecialPlanMeta(ctx context.Context, schoolID int) (eol.Metadata, error)
	ProvinceScoreIndex(ctx context.Context, year, schoolID, provinceID, categoryID int) ([]eol.ProvinceScoreItem, error)
}

type Options struct {
	// YearSince skips every year before it.
	YearSince int
	// QueryInterval separates dependent paginated requests.
	QueryInterval time.Duration
	ListPageSize  int
	PlanPageSize  int
}

func (o Options) withDefaults() Options {
	if o.YearSince == 0 {
		o.YearSince = 2020
	}
	if o.QueryInterval < 0 {
		o.QueryInterval = 0
	}
	if o.ListPageSize <= 0 {
		o.ListPageSize = 20
	}
	if o.PlanPageSize <= 0 {
		o.PlanPageSize = 30
	}
	return o
}

// Walker turns the (province, year, category, batch) tree of an institution
// into flat records. It is strictly sequential.
type Walker struct {
	engine eol.Querier
	static StaticSource
	dict   lookup.Dictionary
	waiter eol.Waiter
	opts   Options
}

func NewWalker(engine eol.Querier, static StaticSource, dict lookup.Dictionary, waiter eol.Waiter, opts Options) *Walker {
	if waiter == nil {
		waiter = eol.SleepWaiter{}
	}
	return &Walker{
		engine: engine,
		static: static,
		dict:   dict,
		waiter: waiter,
		opts:   opts.withDefaults(),
	}
}

// Walk produces every record of one report for one institution.
func (w *Walker) Walk(ctx context.Context, report Report, inst Institution) ([]Record, error) {
	switch report {
	case ProvinceScores:
		rows, err := w.ProvinceScores(ctx, inst)
		return toRecords(rows), err
	case EnrollPlans:
		rows, err := w.EnrollPlans(ctx, inst)
		return toRecords(rows), err
	case MajorScores:
		rows, err := w.MajorScores(ctx, inst)
		return toRecords(rows), err
	}
	return nil, fmt.Errorf("unknown report %d", int(report))
}

func toRecords[T Record](rows []T) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func (w *Walker) years(dims eol.Dimensions, province int) []int {
	var out []int
	for _, year := range dims.Years(province) {
		if year >= w.opts.YearSince {
			out = append(out, year)
		}
	}
	return out
}

func provinceName(id int) string {
	name, ok := lookup.ProvinceName(id)
	if !ok {
		return strconv.Itoa(id)
	}
	return name
}

// metadata treats a missing metadata file as "publishes nothing".
func (w *Walker) metadata(ctx context.Context, inst Institution, get func(context.Context, int) (eol.Metadata, error)) (eol.Dimensions, bool, error) {
	meta, err := get(ctx, inst.SchoolID)
	if errors.Is(err, eol.ErrNotFound) {
		slog.InfoContext(ctx, "institution publishes no data, skipped", "school", inst.Name, "school_id", inst.SchoolID)
		return eol.Dimensions{}, false, nil
	}
	if err != nil {
		return eol.Dimensions{}, false, fmt.Errorf("metadata of %s: %w", inst.Name, err)
	}
	return meta.Dimensions, true, nil
}

func (w *Walker) ProvinceScores(ctx context.Context, inst Institution) ([]ProvinceScore, error) {
	ctx, span := tracer.Start(ctx, "walker:ProvinceScores")
	defer span.End()
	span.SetAttributes(attribute.Int("school_id", inst.SchoolID))

	dims, ok, err := w.metadata(ctx, inst, w.static.ProvinceScoreMeta)
	if err != nil || !ok {
		return nil, err
	}

	var out []ProvinceScore
	for _, province := range dims.Provinces() {
		target := provinceName(province)
		for _, year := range w.years(dims, province) {
			for _, category := range dims.Categories(province, year) {
				items, err := w.static.ProvinceScoreIndex(ctx, year, inst.SchoolID, province, category)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "province score index failed")
					return nil, fmt.Errorf(
						"province scores of %s (province %d, year %d, category %d): %w",
						inst.Name, province, year, category, err,
					)
				}
				for _, item := range items {
					out = append(out, ProvinceScore{
						Code:                inst.EnrollCode,
						Name:                inst.Name,
						LocatedProvince:     inst.ProvinceName,
						TargetProvince:      target,
						Category:            w.dict.CategoryName(category),
						Year:                year,
						Batch:               item.BatchName.String(),
						EnrollType:          item.EnrollType.String(),
						MinScoreRank:        fmt.Sprintf("%s/%s", item.Min, item.MinSection),
						ControlLine:         item.ControlLine.String(),
						SubjectGroup:        item.GroupName.String(),
						SubjectRequirements: item.Requirements.String(),
					})
				}
			}
		}
	}

	span.SetAttributes(attribute.Int("records", len(out)))
	return out, nil
}

// cell identifies one leaf of the dimension tree.
type cell struct {
	province int
	year     int
	category int
	batch    int
}

// walkPages visits every page of uri for every batch of the special plan
// metadata: a page 1 probe for numFound, then pages 1..ceil(numFound/size).
func walkPages[T any](ctx context.Context, w *Walker, uri string, inst Institution, visit func(c cell, items []T)) error {
	dims, ok, err := w.metadata(ctx, inst, w.static.SpecialPlanMeta)
	if err != nil || !ok {
		return err
	}

	size := w.opts.PlanPageSize
	for _, province := range dims.Provinces() {
		for _, year := range w.years(dims, province) {
			for _, category := range dims.Categories(province, year) {
				for _, batch := range dims.Batches(province, year, category) {
					c := cell{province: province, year: year, category: category, batch: batch}
					params := eol.Params{
						"uri":               uri,
						"school_id":         inst.SchoolID,
						"local_province_id": province,
						"year":              year,
						"local_type_id":     strconv.Itoa(category),
						"local_batch_id":    batch,
					}

					numFound, _, err := eol.Fetch[T](ctx, w.engine, params.WithPage(1, size))
					if err != nil {
						return fmt.Errorf("%s of %s %+v: %w", uri, inst.Name, c, err)
					}
					pageCount := ceilDiv(numFound, size)
					slog.DebugContext(
						ctx, "walking batch",
						"school", inst.Name,
						"province", province,
						"year", year,
						"category", category,
						"batch", batch,
						"num_found", numFound,
						"pages", pageCount,
					)

					for page := 1; page <= pageCount; page++ {
						err = w.waiter.Wait(ctx, w.opts.QueryInterval)
						if err != nil {
							return err
						}
						_, items, err := eol.Fetch[T](ctx, w.engine, params.WithPage(page, size))
						if err != nil {
							return fmt.Errorf("%s of %s %+v page %d: %w", uri, inst.Name, c, page, err)
						}
						visit(c, items)
					}
				}
			}
		}
	}
	return nil
}

func (w *Walker) EnrollPlans(ctx context.Context, inst Institution) ([]EnrollPlan, error) {
	ctx, span := tracer.Start(ctx, "walker:EnrollPlans")
	defer span.End()
	span.SetAttributes(attribute.Int("school_id", inst.SchoolID))

	var out []EnrollPlan
	err := walkPages(ctx, w, eol.URIPlan, inst, func(c cell, items []eol.PlanItem) {
		if len(items) == 0 {
			return
		}
		batch := items[0].BatchName.String()
		for _, item := range items {
			out = append(out, EnrollPlan{
				Code:                inst.EnrollCode,
				Name:                inst.Name,
				LocatedProvince:     inst.ProvinceName,
				TargetProvince:      provinceName(c.province),
				Year:                c.year,
				Category:            w.dict.CategoryName(c.category),
				Batch:               batch,
				MajorName:           item.MajorName.String(),
				PlannedNumber:       item.Planned.String(),
				Duration:            item.Length.String(),
				Tuition:             item.Tuition.String(),
				SubjectRequirements: item.Requirements.String(),
			})
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enroll plan walk failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", len(out)))
	return out, nil
}

func (w *Walker) MajorScores(ctx context.Context, inst Institution) ([]MajorScore, error) {
	ctx, span := tracer.Start(ctx, "walker:MajorScores")
	defer span.End()
	span.SetAttributes(attribute.Int("school_id", inst.SchoolID))

	var out []MajorScore
	err := walkPages(ctx, w, eol.URIMajorScore, inst, func(c cell, items []eol.MajorScoreItem) {
		if len(items) == 0 {
			return
		}
		batch := items[0].BatchName.String()
		for _, item := range items {
			out = append(out, MajorScore{
				Code:                inst.EnrollCode,
				Name:                inst.Name,
				LocatedProvince:     inst.ProvinceName,
				TargetProvince:      provinceName(c.province),
				Year:                c.year,
				Category:            w.dict.CategoryName(c.category),
				MajorName:           item.MajorName.String(),
				Batch:               batch,
				AvgScore:            item.Average.String(),
				MinScoreRank:        fmt.Sprintf("%s/%s", item.Min, item.MinSection),
				SubjectRequirements: item.Requirements.String(),
			})
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "major score walk failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", len(out)))
	return out, nil
}
