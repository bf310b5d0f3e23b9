package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// DictionarySource is where the category dictionary is loaded from,
// normally eol.StaticClient.
type DictionarySource interface {
	CategoryDictionary(ctx context.Context) (map[string]string, error)
}

// Dictionary maps subject category ids ("1", "2", "2073", ...) to display
// names ("理科", "文科", "物理类", ...). It is read only once loaded.
type Dictionary struct {
	names map[string]string
}

func NewDictionary(names map[string]string) Dictionary {
	copied := make(map[string]string, len(names))
	for k, v := range names {
		copied[k] = v
	}
	return Dictionary{names: copied}
}

func LoadDictionary(ctx context.Context, source DictionarySource) (Dictionary, error) {
	names, err := source.CategoryDictionary(ctx)
	if err != nil {
		return Dictionary{}, fmt.Errorf("load category dictionary: %w", err)
	}
	slog.DebugContext(ctx, "loaded category dictionary", "entries", len(names))
	return NewDictionary(names), nil
}

// CategoryName renders an unknown id as the id itself.
func (d Dictionary) CategoryName(id int) string {
	key := strconv.Itoa(id)
	name, ok := d.names[key]
	if !ok {
		return key
	}
	return name
}

func (d Dictionary) Len() int {
	return len(d.names)
}
