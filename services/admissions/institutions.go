package admissions

import (
	"context"
	"fmt"
	"log/slog"

	"gaokao-admissions/lib/platforms/eol"
	"gaokao-admissions/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Institution is a university as listed by the school list endpoint.
type Institution struct {
	SchoolID int
	// EnrollCode is the 5 digit enrollment code.
	EnrollCode   string
	Name         string
	ProvinceID   int
	ProvinceName string
}

func institutionFromSchool(s eol.School) Institution {
	code := []rune(s.CodeEnroll)
	if len(code) > 5 {
		code = code[:5]
	}
	return Institution{
		SchoolID:     int(s.SchoolID),
		EnrollCode:   string(code),
		Name:         textutil.NormalizeName(s.Name),
		ProvinceID:   int(s.ProvinceID),
		ProvinceName: s.ProvinceName,
	}
}

type ListOptions struct {
	// PageRange restricts the listing to pages [lo, hi] (1 based, inclusive).
	PageRange *[2]int
	// ItemOffset drops that many institutions from the front of the listing.
	ItemOffset int
	// Keyword narrows the listing to names containing it.
	Keyword string
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// ListInstitutions returns the universities located in a province in the
// order the server lists them.
func (w *Walker) ListInstitutions(ctx context.Context, provinceID int, opts ListOptions) ([]Institution, error) {
	ctx, span := tracer.Start(ctx, "walker:ListInstitutions")
	defer span.End()
	span.SetAttributes(attribute.Int("province_id", provinceID))

	base := eol.Params{
		"uri":          eol.URISchoolList,
		"province_id":  provinceID,
		"request_type": 1,
	}
	if opts.Keyword != "" {
		base["keyword"] = opts.Keyword
	}

	numFound, _, err := eol.Fetch[eol.School](ctx, w.engine, base.WithPage(1, 1))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preflight failed")
		return nil, fmt.Errorf("list institutions preflight: %w", err)
	}

	pageSize := w.opts.ListPageSize
	startPage := 1
	pageCount := ceilDiv(numFound, pageSize)
	if opts.PageRange != nil {
		startPage = max(opts.PageRange[0], 1)
		pageCount = min(opts.PageRange[1], pageCount)
	}
	slog.InfoContext(
		ctx, "listing institutions",
		"province_id", provinceID,
		"total", numFound,
		"start_page", startPage,
		"page_count", pageCount,
	)

	var institutions []Institution
	for page := startPage; page <= pageCount; page++ {
		_, schools, err := eol.Fetch[eol.School](ctx, w.engine, base.WithPage(page, pageSize))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list page failed")
			return nil, fmt.Errorf("list institutions page %d: %w", page, err)
		}
		for _, s := range schools {
			institutions = append(institutions, institutionFromSchool(s))
		}
		err = w.waiter.Wait(ctx, w.opts.QueryInterval)
		if err != nil {
			return nil, err
		}
	}

	if opts.ItemOffset > 0 {
		if opts.ItemOffset >= len(institutions) {
			return nil, nil
		}
		institutions = institutions[opts.ItemOffset:]
	}
	span.SetAttributes(attribute.Int("institutions", len(institutions)))
	return institutions, nil
}
