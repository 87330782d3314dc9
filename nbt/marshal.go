package nbt

import (
	"errors"
	"reflect"
	"sort"
	"strings"
)

var tagType = reflect.TypeOf((*Tag)(nil)).Elem()

// Marshal converts a Go value into a tag tree. Structs and string-keyed maps become compounds,
// []byte, []int32 and []int64 become arrays and other slices become lists. Struct fields are named
// by their `nbt:"name"` tag, or the field name if there is none; `nbt:"-"` skips a field and
// `nbt:"name,omitempty"` skips it when it holds the zero value. Values that already are a Tag are
// used as they are.
func Marshal(v interface{}) (Tag, error) {
	return marshal(reflect.ValueOf(v), "")
}

func marshal(val reflect.Value, tagName string) (Tag, error) {
	if !val.IsValid() {
		return nil, errors.New("nil value whilst serializing " + tagName)
	}
	if val.Type().Implements(tagType) && val.Kind() != reflect.Interface {
		return Clone(val.Interface().(Tag)), nil
	}

	switch vk := val.Kind(); vk {
	default:
		return nil, errors.New("unknown type " + vk.String() + " whilst serializing " + tagName)

	case reflect.Bool:
		if val.Bool() {
			return Byte(1), nil
		}
		return Byte(0), nil

	case reflect.Int8:
		return Byte(val.Int()), nil

	case reflect.Uint8:
		return Byte(int8(val.Uint())), nil

	case reflect.Int16:
		return Short(val.Int()), nil

	case reflect.Uint16:
		return Short(int16(val.Uint())), nil

	case reflect.Int32, reflect.Int:
		return Int(int32(val.Int())), nil

	case reflect.Uint32:
		return Int(int32(val.Uint())), nil

	case reflect.Float32:
		return Float(val.Float()), nil

	case reflect.Int64:
		return Long(val.Int()), nil

	case reflect.Uint64:
		return Long(int64(val.Uint())), nil

	case reflect.Float64:
		return Double(val.Float()), nil

	case reflect.Array, reflect.Slice:
		return marshalArray(val, tagName)

	case reflect.String:
		return String(val.String()), nil

	case reflect.Struct:
		return marshalStruct(val)

	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return nil, errors.New("unknown key type " + val.Type().String() + " for map")
		}
		return marshalMap(val)

	case reflect.Interface, reflect.Ptr:
		if val.IsNil() {
			return nil, errors.New("nil value whilst serializing " + tagName)
		}
		return marshal(val.Elem(), tagName)
	}
}

func marshalArray(val reflect.Value, tagName string) (Tag, error) {
	n := val.Len()
	switch val.Type().Elem().Kind() {
	case reflect.Uint8: // []byte
		out := make(ByteArray, n)
		for i := 0; i < n; i++ {
			out[i] = byte(val.Index(i).Uint())
		}
		return out, nil

	case reflect.Int32:
		out := make(IntArray, n)
		for i := 0; i < n; i++ {
			out[i] = int32(val.Index(i).Int())
		}
		return out, nil

	case reflect.Int64:
		out := make(LongArray, n)
		for i := 0; i < n; i++ {
			out[i] = val.Index(i).Int()
		}
		return out, nil
	}

	// Everything else is a list; the element type comes from the first element and the rest must
	// agree with it.
	l := List{Elem: TagEnd, Values: make([]Tag, 0, n)}
	for i := 0; i < n; i++ {
		t, err := marshal(val.Index(i), tagName)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			l.Elem = t.ID()
		} else if t.ID() != l.Elem {
			return nil, errors.New("mixed types in slice " + tagName + ": found " + TagName(t.ID()) + " and " +
				TagName(l.Elem))
		}
		l.Values = append(l.Values, t)
	}
	return l, nil
}

func marshalStruct(val reflect.Value) (Tag, error) {
	c := NewCompound()
	n := val.NumField()
	for i := 0; i < n; i++ {
		f := val.Type().Field(i)
		tag := f.Tag.Get("nbt")
		if (f.PkgPath != "" && !f.Anonymous) || tag == "-" {
			continue // Private field
		}

		tagName := f.Name
		omitEmpty := false
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				tagName = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		}

		field := val.Field(i)
		if omitEmpty && isEmptyValue(field) {
			continue
		}
		if (field.Kind() == reflect.Ptr || field.Kind() == reflect.Interface) && field.IsNil() {
			continue
		}

		t, err := marshal(field, tagName)
		if err != nil {
			return nil, err
		}
		c.Set(tagName, t)
	}
	return c, nil
}

func marshalMap(val reflect.Value) (Tag, error) {
	// sorted so that the same map always yields the same bytes
	keys := val.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	c := NewCompound()
	for _, k := range keys {
		t, err := marshal(val.MapIndex(k), k.String())
		if err != nil {
			return nil, err
		}
		c.Set(k.String(), t)
	}
	return c, nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
