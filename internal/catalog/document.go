package catalog

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is a supplier price list. Entries keep nil fields for anything
// missing or of the wrong type so the importer can skip them one by one.
type Document struct {
	Shop       *string
	URL        *string
	Categories []CategoryEntry
	Goods      []GoodEntry
}

// CategoryEntry is one element of the `categories` sequence.
type CategoryEntry struct {
	ID   *int64
	Name *string
}

// GoodEntry is one element of the `goods` sequence.
type GoodEntry struct {
	ID         *int64
	Category   *int64
	Model      *string
	Name       *string
	Quantity   *int64
	Price      *int64
	PriceRRC   *int64
	Parameters map[string]string
}

// Parameter is a rendered name/value pair of a good.
type Parameter struct {
	Name  string
	Value string
}

// rawDocument mirrors the top-level keys; pointers tell absent from empty.
type rawDocument struct {
	Shop       any               `yaml:"shop"`
	URL        any               `yaml:"url"`
	Categories *[]map[string]any `yaml:"categories"`
	Goods      *[]map[string]any `yaml:"goods"`
}

// ParseDocument decodes a YAML (or JSON) price list. A document that does not
// carry shop, categories and goods yields a SCHEMA_ERROR.
func ParseDocument(r io.Reader) (*Document, error) {
	if r == nil {
		return nil, schemaError("document body required")
	}
	var raw rawDocument
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		var typeErr *yaml.TypeError
		switch {
		case errors.Is(err, io.EOF):
			return nil, schemaError("document is empty")
		case errors.As(err, &typeErr):
			// Mismatched entries decode as empty values and are skipped later.
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeSchema, err, "insufficient arguments").
				WithDetails(map[string]string{"document": err.Error()})
		}
	}

	doc := &Document{
		Shop: asString(raw.Shop),
		URL:  asString(raw.URL),
	}
	if raw.Categories != nil && *raw.Categories != nil {
		doc.Categories = make([]CategoryEntry, 0, len(*raw.Categories))
		for _, entry := range *raw.Categories {
			doc.Categories = append(doc.Categories, CategoryEntry{
				ID:   asInt(entry["id"]),
				Name: asString(entry["name"]),
			})
		}
	}
	if raw.Goods != nil && *raw.Goods != nil {
		doc.Goods = make([]GoodEntry, 0, len(*raw.Goods))
		for _, entry := range *raw.Goods {
			doc.Goods = append(doc.Goods, GoodEntry{
				ID:         asInt(entry["id"]),
				Category:   asInt(entry["category"]),
				Model:      asString(entry["model"]),
				Name:       asString(entry["name"]),
				Quantity:   asInt(entry["quantity"]),
				Price:      asInt(entry["price"]),
				PriceRRC:   asInt(entry["price_rrc"]),
				Parameters: asParameters(entry["parameters"]),
			})
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks the top-level keys only; malformed entries are the importer's concern.
func (d *Document) Validate() error {
	if d == nil {
		return schemaError("document required")
	}
	missing := make([]string, 0, 3)
	if d.Shop == nil || strings.TrimSpace(*d.Shop) == "" {
		missing = append(missing, "shop")
	}
	if d.Categories == nil {
		missing = append(missing, "categories")
	}
	if d.Goods == nil {
		missing = append(missing, "goods")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeSchema, "insufficient arguments").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

// ShopName returns the trimmed shop name. Call Validate first.
func (d *Document) ShopName() string {
	if d == nil || d.Shop == nil {
		return ""
	}
	return strings.TrimSpace(*d.Shop)
}

func (c CategoryEntry) valid() bool {
	return c.ID != nil && c.Name != nil && strings.TrimSpace(*c.Name) != ""
}

func (g GoodEntry) valid() bool {
	if g.ID == nil || g.Category == nil || g.Model == nil || g.Name == nil {
		return false
	}
	if g.Quantity == nil || g.Price == nil || g.PriceRRC == nil || g.Parameters == nil {
		return false
	}
	if strings.TrimSpace(*g.Name) == "" {
		return false
	}
	if *g.Quantity < 0 || *g.Quantity > math.MaxInt32 {
		return false
	}
	return *g.Price >= 0 && *g.PriceRRC >= 0
}

// SortedParameters returns the parameters ordered by name.
func (g GoodEntry) SortedParameters() []Parameter {
	params := make([]Parameter, 0, len(g.Parameters))
	for name, value := range g.Parameters {
		params = append(params, Parameter{Name: name, Value: value})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}

func schemaError(reason string) error {
	return pkgerrors.New(pkgerrors.CodeSchema, "insufficient arguments").
		WithDetails(map[string]string{"document": reason})
}

func asString(v any) *string {
	switch typed := v.(type) {
	case string:
		return &typed
	case int:
		s := strconv.Itoa(typed)
		return &s
	case int64:
		s := strconv.FormatInt(typed, 10)
		return &s
	case float64:
		s := strconv.FormatFloat(typed, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

func asInt(v any) *int64 {
	var out int64
	switch typed := v.(type) {
	case int:
		out = int64(typed)
	case int64:
		out = typed
	case uint64:
		if typed > math.MaxInt64 {
			return nil
		}
		out = int64(typed)
	case float64:
		// 2^63 itself is representable as a float64 but not as an int64.
		if typed != math.Trunc(typed) || typed < math.MinInt64 || typed >= math.MaxInt64 {
			return nil
		}
		out = int64(typed)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return nil
		}
		out = parsed
	default:
		return nil
	}
	return &out
}

func asParameters(v any) map[string]string {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]string, len(typed))
		for name, value := range typed {
			if value == nil || strings.TrimSpace(name) == "" {
				continue
			}
			out[name] = fmt.Sprint(value)
		}
		return out
	case map[any]any:
		out := make(map[string]string, len(typed))
		for name, value := range typed {
			key := fmt.Sprint(name)
			if value == nil || strings.TrimSpace(key) == "" {
				continue
			}
			out[key] = fmt.Sprint(value)
		}
		return out
	default:
		return nil
	}
}
