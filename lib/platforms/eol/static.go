package eol

import (
	"context"
	"encoding/json"
	"fmt"
)

// Getter is the part of Transport the static client depends on.
type Getter interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// StaticClient reads the pre-rendered json files of the static data host.
// A missing file comes back as ErrNotFound, it is up to callers whether that
// means "no data".
type StaticClient struct {
	transport Getter
}

func NewStaticClient(transport Getter) StaticClient {
	return StaticClient{transport: transport}
}

type staticEnvelope[T any] struct {
	Data T `json:"data"`
}

func getStatic[T any](ctx context.Context, getter Getter, path string) (T, error) {
	var out staticEnvelope[T]
	raw, err := getter.Get(ctx, path)
	if err != nil {
		return out.Data, err
	}
	err = json.Unmarshal(raw, &out)
	if err != nil {
		return out.Data, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return out.Data, nil
}

func (c StaticClient) ProvinceScoreMeta(ctx context.Context, schoolID int) (Metadata, error) {
	return getStatic[Metadata](ctx, c.transport, fmt.Sprintf("/school/%d/dic/provincescore.json", schoolID))
}

// SpecialPlanMeta describes both the enrollment plans and the per-major scores.
func (c StaticClient) SpecialPlanMeta(ctx context.Context, schoolID int) (Metadata, error) {
	return getStatic[Metadata](ctx, c.transport, fmt.Sprintf("/school/%d/dic/specialplan.json", schoolID))
}

type provinceScoreIndex struct {
	Item []ProvinceScoreItem `json:"item"`
}

func (c StaticClient) ProvinceScoreIndex(ctx context.Context, year, schoolID, provinceID, categoryID int) ([]ProvinceScoreItem, error) {
	index, err := getStatic[provinceScoreIndex](ctx, c.transport, fmt.Sprintf(
		"/schoolprovinceindex/%d/%d/%d/%d/1.json",
		year, schoolID, provinceID, categoryID,
	))
	if err != nil {
		return nil, err
	}
	return index.Item, nil
}

// CategoryDictionary returns the id -> display name map of subject categories.
func (c StaticClient) CategoryDictionary(ctx context.Context) (map[string]string, error) {
	return getStatic[map[string]string](ctx, c.transport, "/config/dicprovince/dic.json")
}
