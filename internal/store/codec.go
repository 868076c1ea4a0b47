package store

import (
	"reflect"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/ummitifli/storefront/internal/domain"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	floatType = reflect.TypeOf(float64(0))
	boolType  = reflect.TypeOf(false)
)

// rowHook coerces loosely typed column values: numeric strings, text
// timestamps in whatever layout the server emits, and "t"/"f" booleans.
func rowHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	switch to {
	case timeType:
		if s, ok := data.(string); ok {
			return dateparse.ParseAny(s)
		}
	case floatType:
		return cast.ToFloat64E(data)
	case boolType:
		return cast.ToBoolE(data)
	}
	return data, nil
}

// DecodeRow maps a generic row onto a product.
func DecodeRow(row map[string]interface{}) (domain.Product, error) {
	var p domain.Product
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       rowHook,
		WeaklyTypedInput: true,
		Result:           &p,
		TagName:          "mapstructure",
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(row); err != nil {
		return p, errors.Wrap(err, "decode product row")
	}
	return p, nil
}

// DecodeRows parses a JSON array of rows.
func DecodeRows(body []byte) ([]domain.Product, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "parse rows")
	}
	rows := make([]domain.Product, 0, len(raw))
	for _, r := range raw {
		p, err := DecodeRow(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	return rows, nil
}
