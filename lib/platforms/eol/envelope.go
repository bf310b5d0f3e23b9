package eol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	CodeOK          = "0000"
	CodeRateLimited = "1069"
	CodeOversize    = "1090"
)

// envelope is the uniform shape of every query api response. Data is only
// meaningful when Code is CodeOK.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Page is one page of results as the server returned it.
type Page struct {
	NumFound int               `json:"numFound"`
	Items    []json.RawMessage `json:"item"`
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(raw, &env)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: envelope: %w", ErrDecode, err)
	}
	if env.Code == "" {
		return envelope{}, fmt.Errorf("%w: envelope has no code", ErrDecode)
	}
	return env, nil
}

func decodePage(data json.RawMessage) (Page, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Page{}, fmt.Errorf("%w: successful response without data", ErrDecode)
	}
	var page Page
	err := json.Unmarshal(data, &page)
	if err != nil {
		return Page{}, fmt.Errorf("%w: page: %w", ErrDecode, err)
	}
	return page, nil
}

// Params is the request body of a query. Besides the endpoint specific
// dimension keys it always carries "uri", "page" and "size".
type Params map[string]any

func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// WithPage returns a copy of p asking for another page/size.
func (p Params) WithPage(page, size int) Params {
	out := p.Clone()
	out["page"] = page
	out["size"] = size
	return out
}

func (p Params) URI() string {
	uri, _ := p["uri"].(string)
	return uri
}

func (p Params) Page() int {
	return intParam(p["page"])
}

func (p Params) Size() int {
	return intParam(p["size"])
}

func intParam(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
