package model

import (
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"caustic/internal/prior"
)

// Defaulter is implemented by component structs that ship default priors.
// Keys are leaf paths relative to the component ("centre.centre_0",
// "effective_radius"); leaves with an entry join the spec free, leaves
// without one are fixed at the field's current value. Implement it on the
// value receiver so it is visible through nested fields.
type Defaulter interface {
	DefaultPriors() map[string]prior.Prior
}

// Add reflects over a component and registers its parameters under path.
//
// Walk rules: float64 fields become one leaf; [2]float64 fields become a
// composite with two leaves (<name>.<name>_0, <name>.<name>_1); nested
// structs, pointers and maps recurse. Field names convert to snake_case
// unless a `param` tag overrides them; `param:"-"` skips a field and
// `param:",inline"` splices a map's entries directly under the current
// path. Non-numeric fields are ignored.
func (s *Spec) Add(p string, component any) error {
	if p == "" {
		return fmt.Errorf("empty component path")
	}
	if _, ok := s.params[p]; ok {
		return fmt.Errorf("path already in use: %s", p)
	}
	prefix := p + "."
	for existing := range s.params {
		if strings.HasPrefix(existing, prefix) {
			return fmt.Errorf("path already in use: %s", p)
		}
	}

	n, err := s.walk(p, reflect.ValueOf(component), defaultSet{})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("component at %s has no parameters", p)
	}
	return nil
}

// defaultSet carries the nearest enclosing Defaulter's priors down the walk.
type defaultSet struct {
	priors map[string]prior.Prior
	root   string
}

func (d defaultSet) lookup(leaf string) (prior.Prior, bool) {
	if d.priors == nil {
		return nil, false
	}
	pr, ok := d.priors[relativeTo(leaf, d.root)]
	return pr, ok
}

func (s *Spec) walk(p string, v reflect.Value, defaults defaultSet) (int, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Float64:
		s.addLeaf(p, v.Float(), defaults)
		return 1, nil

	case reflect.Array:
		return s.walkPair(p, v, defaults)

	case reflect.Struct:
		return s.walkStruct(p, v, defaults)

	case reflect.Map:
		return s.walkMap(p, v, defaults)

	default:
		return 0, nil
	}
}

func (s *Spec) walkPair(p string, v reflect.Value, defaults defaultSet) (int, error) {
	if v.Len() != 2 || v.Type().Elem().Kind() != reflect.Float64 {
		return 0, nil
	}
	base := path.Base(strings.ReplaceAll(p, ".", "/"))
	for i := 0; i < 2; i++ {
		s.addLeaf(fmt.Sprintf("%s.%s_%d", p, base, i), v.Index(i).Float(), defaults)
	}
	return 2, nil
}

func (s *Spec) walkStruct(p string, v reflect.Value, defaults defaultSet) (int, error) {
	t := v.Type()
	if t.Name() != "" && t.PkgPath() != "" {
		s.types[p] = typeName(t)
	}
	if d, ok := v.Interface().(Defaulter); ok {
		defaults = defaultSet{priors: d.DefaultPriors(), root: p}
	}

	total := 0
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, inline, skip := parseTag(field)
		if skip {
			continue
		}

		fv := v.Field(i)
		if inline {
			n, err := s.walk(p, fv, defaults)
			if err != nil {
				return total, err
			}
			total += n
			continue
		}

		n, err := s.walk(p+"."+name, fv, defaults)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Spec) walkMap(p string, v reflect.Value, defaults defaultSet) (int, error) {
	if v.Type().Key().Kind() != reflect.String {
		return 0, nil
	}
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	total := 0
	for _, k := range keys {
		n, err := s.walk(p+"."+k, v.MapIndex(reflect.ValueOf(k)), defaults)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Spec) addLeaf(p string, value float64, defaults defaultSet) {
	if pr, ok := defaults.lookup(p); ok {
		s.params[p] = FreeParam(pr)
	} else {
		s.params[p] = FixedParam(value)
	}
}

// parseTag reads a `param` struct tag: name[,inline] or "-".
func parseTag(field reflect.StructField) (name string, inline, skip bool) {
	tag := field.Tag.Get("param")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, opt := range parts[1:] {
		if opt == "inline" {
			inline = true
		}
	}
	if name == "" {
		name = snakeCase(field.Name)
	}
	return name, inline, false
}

// typeName renders a struct type as it appears in the component registry
// and prior config: package base name dot type name ("light.Sersic").
func typeName(t reflect.Type) string {
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// snakeCase converts CamelCase field names to snake_case, keeping acronym
// runs together (UVWavelengths -> uv_wavelengths).
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Decode writes the instance's values at path back into a component struct.
// The target must be a non-nil pointer shaped like the component that was
// added: float64 and [2]float64 fields are filled from leaves, nested
// structs recurse, inline maps decode into their existing entries (which
// must be pointers). Fields without a stored leaf value are an error.
func (i *Instance) Decode(p string, out any) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("decode target for %s must be a non-nil pointer", p)
	}
	return i.decode(p, v.Elem())
}

func (i *Instance) decode(p string, v reflect.Value) error {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.Kind() == reflect.Interface {
			if v.IsNil() {
				return fmt.Errorf("nil interface at %s", p)
			}
			elem := v.Elem()
			if elem.Kind() != reflect.Pointer || elem.IsNil() {
				return fmt.Errorf("interface at %s must hold a non-nil pointer", p)
			}
			v = elem.Elem()
			continue
		}
		if v.IsNil() {
			if !v.CanSet() {
				return fmt.Errorf("cannot allocate nil pointer at %s", p)
			}
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Float64:
		val, ok := i.Value(p)
		if !ok {
			return fmt.Errorf("instance has no value at %s", p)
		}
		v.SetFloat(val)
		return nil

	case reflect.Array:
		if v.Len() != 2 || v.Type().Elem().Kind() != reflect.Float64 {
			return nil
		}
		base := path.Base(strings.ReplaceAll(p, ".", "/"))
		for idx := 0; idx < 2; idx++ {
			leaf := fmt.Sprintf("%s.%s_%d", p, base, idx)
			val, ok := i.Value(leaf)
			if !ok {
				return fmt.Errorf("instance has no value at %s", leaf)
			}
			v.Index(idx).SetFloat(val)
		}
		return nil

	case reflect.Struct:
		t := v.Type()
		for idx := 0; idx < t.NumField(); idx++ {
			field := t.Field(idx)
			if !field.IsExported() {
				continue
			}
			name, inline, skip := parseTag(field)
			if skip {
				continue
			}
			fv := v.Field(idx)
			target := p + "." + name
			if inline {
				target = p
			}
			if !decodable(field.Type) {
				continue
			}
			if err := i.decode(target, fv); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		for _, k := range v.MapKeys() {
			entry := v.MapIndex(k)
			// Map entries are not addressable; values must come as pointers
			if entry.Kind() != reflect.Pointer && entry.Kind() != reflect.Interface {
				return fmt.Errorf("map entries at %s must be pointers to decode", p)
			}
			if err := i.decode(p+"."+k.String(), entry); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

// decodable reports whether a field type can carry instance values.
func decodable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Float64, reflect.Struct, reflect.Map, reflect.Pointer, reflect.Interface:
		return true
	case reflect.Array:
		return t.Len() == 2 && t.Elem().Kind() == reflect.Float64
	default:
		return false
	}
}
