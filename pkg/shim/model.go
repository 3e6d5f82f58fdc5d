package shim

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
)

// AliasTag is the struct tag naming an alternative input key for a field.
const AliasTag = "alias"

// ErrNotStruct is returned when Decode or Encode is given something other
// than a struct (or a pointer to one, for Decode).
var ErrNotStruct = errors.New("shim: target must be a struct")

var baseModelType = reflect.TypeFor[BaseModel]()

// BaseModel is the permissive base for mirrored models. Members present in
// the input but not declared by the embedding struct are kept in Extra.
type BaseModel struct {
	Extra map[string]any `json:"-"`
}

// Get returns an extra member.
func (m *BaseModel) Get(key string) (any, bool) {
	v, ok := m.Extra[key]
	return v, ok
}

// Set stores an extra member.
func (m *BaseModel) Set(key string, value any) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[key] = value
}

// Delete removes an extra member.
func (m *BaseModel) Delete(key string) {
	delete(m.Extra, key)
}

// Extras returns a copy of the extra members.
func (m *BaseModel) Extras() map[string]any {
	return maps.Clone(m.Extra)
}

type field struct {
	index []int
	name  string
	alias string
}

// fields lists the settable JSON fields of t, flattening embedded structs
// the way encoding/json does. BaseModel itself is skipped.
func fields(t reflect.Type, prefix []int) []field {
	var out []field
	for i := range t.NumField() {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft == baseModelType {
				continue
			}
			if ft.Kind() == reflect.Struct {
				out = append(out, fields(ft, index)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out = append(out, field{index: index, name: name, alias: sf.Tag.Get(AliasTag)})
	}
	return out
}

// baseOf returns the embedded BaseModel of the struct value rv, if any.
func baseOf(rv reflect.Value) *BaseModel {
	for i := range rv.NumField() {
		sf := rv.Type().Field(i)
		if !sf.Anonymous {
			continue
		}
		switch {
		case sf.Type == baseModelType:
			return rv.Field(i).Addr().Interface().(*BaseModel)
		case sf.Type.Kind() == reflect.Pointer && sf.Type.Elem() == baseModelType:
			if rv.Field(i).IsNil() {
				rv.Field(i).Set(reflect.New(baseModelType))
			}
			return rv.Field(i).Interface().(*BaseModel)
		}
	}
	return nil
}

// extrasOf reads the extra members of the struct value rv without
// modifying it.
func extrasOf(rv reflect.Value) map[string]any {
	for i := range rv.NumField() {
		sf := rv.Type().Field(i)
		if !sf.Anonymous {
			continue
		}
		switch {
		case sf.Type == baseModelType:
			return rv.Field(i).Interface().(BaseModel).Extra
		case sf.Type.Kind() == reflect.Pointer && sf.Type.Elem() == baseModelType:
			if rv.Field(i).IsNil() {
				return nil
			}
			return rv.Field(i).Interface().(*BaseModel).Extra
		}
	}
	return nil
}

// Decode unmarshals a JSON object into the struct pointed to by v. Fields
// match by JSON name, then by alias tag, then case-insensitively by name.
// Unmatched members go to the embedded BaseModel, when there is one, and
// are dropped otherwise. Nested models reached through fields, pointers,
// slices and string-keyed maps are decoded the same way.
func Decode(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrNotStruct, v)
	}
	if err := decodeStruct(data, rv.Elem()); err != nil {
		return fmt.Errorf("shim: %w", err)
	}
	return nil
}

func decodeStruct(data []byte, rv reflect.Value) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("decode %s: %w", rv.Type(), err)
	}

	for _, f := range fields(rv.Type(), nil) {
		key, ok := lookup(members, f)
		if !ok {
			continue
		}
		target, err := fieldByIndex(rv, f.index)
		if err != nil {
			return err
		}
		if err := decodeValue(members[key], target); err != nil {
			return fmt.Errorf("decode %s.%s: %w", rv.Type(), f.name, err)
		}
		delete(members, key)
	}

	base := baseOf(rv)
	if base == nil || len(members) == 0 {
		return nil
	}
	for key, raw := range members {
		var value any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode extra member %q: %w", key, err)
		}
		base.Set(key, value)
	}
	return nil
}

// decodeValue stores raw in target. Types that cannot hold a model are left
// to encoding/json.
func decodeValue(raw json.RawMessage, target reflect.Value) error {
	t := target.Type()
	if !holdsModel(t) {
		return json.Unmarshal(raw, target.Addr().Interface())
	}
	if string(bytes.TrimSpace(raw)) == "null" {
		// encoding/json leaves structs untouched on null
		if t.Kind() != reflect.Struct {
			target.SetZero()
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		if target.IsNil() {
			target.Set(reflect.New(t.Elem()))
		}
		return decodeValue(raw, target.Elem())
	case reflect.Slice:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		s := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := decodeValue(item, s.Index(i)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		target.Set(s)
	case reflect.Map:
		var items map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		m := reflect.MakeMapWithSize(t, len(items))
		for k, item := range items {
			elem := reflect.New(t.Elem()).Elem()
			if err := decodeValue(item, elem); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
			m.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), elem)
		}
		target.Set(m)
	case reflect.Struct:
		return decodeStruct(raw, target)
	}
	return nil
}

var (
	marshalerType   = reflect.TypeFor[json.Marshaler]()
	unmarshalerType = reflect.TypeFor[json.Unmarshaler]()
)

// holdsModel reports whether values of t can contain a struct embedding
// BaseModel. Types with their own JSON methods never do.
func holdsModel(t reflect.Type) bool {
	return holdsModelSeen(t, map[reflect.Type]bool{})
}

func holdsModelSeen(t reflect.Type, seen map[reflect.Type]bool) bool {
	if found, ok := seen[t]; ok {
		return found
	}
	seen[t] = false
	if t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType) ||
		reflect.PointerTo(t).Implements(unmarshalerType) {
		return false
	}

	found := false
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice:
		found = holdsModelSeen(t.Elem(), seen)
	case reflect.Map:
		found = t.Key().Kind() == reflect.String && holdsModelSeen(t.Elem(), seen)
	case reflect.Struct:
		if t == baseModelType {
			break
		}
		found = embedsBase(t)
		for _, f := range fields(t, nil) {
			if found {
				break
			}
			found = holdsModelSeen(t.FieldByIndex(f.index).Type, seen)
		}
	}
	seen[t] = found
	return found
}

func embedsBase(t reflect.Type) bool {
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Anonymous && (sf.Type == baseModelType || sf.Type == reflect.PointerTo(baseModelType)) {
			return true
		}
	}
	return false
}

func lookup(members map[string]json.RawMessage, f field) (string, bool) {
	if _, ok := members[f.name]; ok {
		return f.name, true
	}
	if f.alias != "" {
		if _, ok := members[f.alias]; ok {
			return f.alias, true
		}
	}
	for key := range members {
		if strings.EqualFold(key, f.name) {
			return key, true
		}
	}
	return "", false
}

// fieldByIndex walks index, allocating nil embedded struct pointers.
func fieldByIndex(rv reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				if !rv.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot set embedded pointer in %s", rv.Type())
				}
				rv.Set(reflect.New(rv.Type().Elem()))
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv, nil
}

// fieldValue walks index without allocating. It reports false when an
// embedded pointer on the way is nil.
func fieldValue(rv reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return reflect.Value{}, false
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv, true
}

// Encode marshals v to a JSON object containing its declared fields and
// the extra members of its embedded BaseModel. Declared fields win over
// extras with the same key. Nested models keep their extras too.
func Encode(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %T", ErrNotStruct, v)
	}
	data, err := encodeStruct(rv)
	if err != nil {
		return nil, fmt.Errorf("shim: %w", err)
	}
	return data, nil
}

func encodeStruct(rv reflect.Value) ([]byte, error) {
	declared, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rv.Type(), err)
	}

	nested := make(map[string]json.RawMessage)
	for _, f := range fields(rv.Type(), nil) {
		fv, ok := fieldValue(rv, f.index)
		if !ok || !fv.CanInterface() || !holdsModel(fv.Type()) {
			continue
		}
		raw, err := encodeValue(fv)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", rv.Type(), f.name, err)
		}
		nested[f.name] = raw
	}

	extras := extrasOf(rv)
	if len(extras) == 0 && len(nested) == 0 {
		return declared, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(declared, &members); err != nil {
		return nil, fmt.Errorf("encode %s: %w", rv.Type(), err)
	}
	for name, raw := range nested {
		// omitempty fields stay omitted
		if _, ok := members[name]; ok {
			members[name] = raw
		}
	}
	for key, value := range extras {
		if _, ok := members[key]; ok {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode extra member %q: %w", key, err)
		}
		members[key] = raw
	}
	return json.Marshal(members)
}

func encodeValue(rv reflect.Value) (json.RawMessage, error) {
	if !holdsModel(rv.Type()) {
		return json.Marshal(rv.Interface())
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return json.RawMessage("null"), nil
		}
		return encodeValue(rv.Elem())
	case reflect.Slice:
		if rv.IsNil() {
			return json.RawMessage("null"), nil
		}
		items := make([]json.RawMessage, rv.Len())
		for i := range items {
			raw, err := encodeValue(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = raw
		}
		return json.Marshal(items)
	case reflect.Map:
		if rv.IsNil() {
			return json.RawMessage("null"), nil
		}
		items := make(map[string]json.RawMessage, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			raw, err := encodeValue(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", iter.Key().String(), err)
			}
			items[iter.Key().String()] = raw
		}
		return json.Marshal(items)
	case reflect.Struct:
		return encodeStruct(rv)
	}
	return json.Marshal(rv.Interface())
}
