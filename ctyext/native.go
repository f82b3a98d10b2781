// Package ctyext converts cty values to native Go values.
package ctyext

import (
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// Native converts a cty value to the corresponding native Go value:
// string, float64, bool, []interface{} or map[string]interface{}.
//
// Numbers always become float64, matching what encoding/json produces, so
// values survive a JSON round trip unchanged. Unknown values cannot be
// converted and return an error.
func Native(val cty.Value) (interface{}, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsKnown() {
		return nil, errors.New("value is not known")
	}

	ty := val.Type()
	switch ty {
	case cty.String:
		return val.AsString(), nil
	case cty.Bool:
		return val.True(), nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	}

	switch {
	case ty.IsListType(), ty.IsSetType(), ty.IsTupleType():
		out := make([]interface{}, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			v, err := Native(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case ty.IsMapType(), ty.IsObjectType():
		out := make(map[string]interface{}, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			ek, ev := it.Element()
			v, err := Native(ev)
			if err != nil {
				return nil, err
			}
			out[ek.AsString()] = v
		}
		return out, nil
	}

	return nil, errors.Errorf("unsupported value type %s", ty.FriendlyName())
}

// Strings converts a cty list, set or tuple to a string slice.
func Strings(val cty.Value) ([]string, error) {
	v, err := Native(val)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, errors.New("value is not a list")
	}
	out := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, errors.Errorf("element %d is not a string", i)
		}
		out[i] = s
	}
	return out, nil
}
