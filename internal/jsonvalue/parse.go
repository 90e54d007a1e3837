package jsonvalue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

var ErrSyntax = errors.New("jsonvalue: invalid json")

// Parse decodes data into a Value tree, keeping object member order.
func Parse(data []byte) (*Value, error) {
	if !json.Valid(data) {
		return nil, ErrSyntax
	}
	raw, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("jsonvalue: parse: %w", err)
	}
	return build(raw, typ)
}

// ParseString is Parse for text input. It returns nil when s is not valid JSON.
func ParseString(s string) *Value {
	v, err := Parse([]byte(s))
	if err != nil {
		return nil
	}
	return v
}

func build(raw []byte, typ jsonparser.ValueType) (*Value, error) {
	switch typ {
	case jsonparser.Null:
		return NewNull(), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return nil, fmt.Errorf("jsonvalue: bool: %w", err)
		}
		return NewBool(b), nil
	case jsonparser.Number:
		return &Value{kind: Number, num: string(raw)}, nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return nil, fmt.Errorf("jsonvalue: string: %w", err)
		}
		return NewString(s), nil
	case jsonparser.Array:
		arr := NewArray()
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(item []byte, t jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			child, err := build(item, t)
			if err != nil {
				inner = err
				return
			}
			arr.items = append(arr.items, child)
		})
		if err == nil {
			err = inner
		}
		if err != nil {
			return nil, fmt.Errorf("jsonvalue: array: %w", err)
		}
		return arr, nil
	case jsonparser.Object:
		obj := NewObject()
		err := jsonparser.ObjectEach(raw, func(key, item []byte, t jsonparser.ValueType, _ int) error {
			child, err := build(item, t)
			if err != nil {
				return err
			}
			obj.fields.Set(string(key), child)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("jsonvalue: object: %w", err)
		}
		return obj, nil
	}
	return nil, ErrSyntax
}
