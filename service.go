package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

func getStructName(myvar interface{}) string {
	if t := reflect.TypeOf(myvar); t.Kind() == reflect.Ptr {
		return t.Elem().Name()
	} else {
		return t.Name()
	}
}

// columnName returns the json tag name of the field, which is also its column name
func columnName(f reflect.StructField) string {
	tag := strings.Split(f.Tag.Get("json"), ",")[0] // in case there are options like omitempty
	if tag == "-" {
		return ""
	}
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	return tag
}

/*
structToMap turns a struct (or a pointer to one) into column -> value so it can be used as named
query arguments. Values keep their Go type so driver.Valuer implementations still apply.
A map[string]interface{} is copied as-is.
*/
func structToMap(obj interface{}) (map[string]interface{}, error) {
	if obj == nil {
		return nil, errors.New("obj cannot be nil")
	}

	v := reflect.Indirect(reflect.ValueOf(obj))
	switch v.Kind() {
	case reflect.Map:
		m, ok := v.Interface().(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("map must be map[string]interface{}; is %T", obj)
		}
		res := make(map[string]interface{}, len(m))
		for k, val := range m {
			res[k] = val
		}
		return res, nil

	case reflect.Struct:
	default:
		return nil, fmt.Errorf("obj must be a struct or a pointer to one; is %T", obj)
	}

	t := v.Type()
	res := make(map[string]interface{}, t.NumField()+1)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := columnName(field)
		if name == "" {
			continue
		}
		res[name] = v.Field(i).Interface()
	}

	res[objMapStructNameKey] = t.Name()
	return res, nil
}

// mapToStruct sets every field of obj (a pointer to a struct) that has a non-nil value in m
func mapToStruct(m map[string]interface{}, obj interface{}) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("obj must be a non-nil pointer; is %T", obj)
	}

	v = v.Elem()
	if v.Kind() == reflect.Map {
		dst, ok := v.Interface().(map[string]interface{})
		if !ok {
			return fmt.Errorf("map must be map[string]interface{}; is %T", obj)
		}
		for k, val := range m {
			dst[k] = val
		}
		return nil
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("obj must point to a struct; is %T", obj)
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := columnName(field)
		val, ok := m[name]
		if !ok || val == nil {
			continue
		}
		if err := assignValue(v.Field(i), val); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
	}
	return nil
}

func assignValue(f reflect.Value, val interface{}) error {
	if f.CanAddr() && f.Addr().Type().Implements(scannerType) {
		return f.Addr().Interface().(sql.Scanner).Scan(val)
	}

	if b, ok := val.([]byte); ok {
		val = string(b)
	}

	rv := reflect.ValueOf(val)
	switch {
	case rv.Type().AssignableTo(f.Type()):
		f.Set(rv)
	case f.Kind() == reflect.String && rv.Kind() != reflect.String:
		// converting an int to a string would give a rune
		f.SetString(fmt.Sprint(val))
	case rv.Type().ConvertibleTo(f.Type()):
		f.Set(rv.Convert(f.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", val, f.Type())
	}
	return nil
}

// mapsToStruct appends every row to dest which must be a pointer to a slice of structs (or of pointers to structs)
func mapsToStruct(rows []map[string]interface{}, dest interface{}) error {
	value := reflect.ValueOf(dest)

	if value.Kind() != reflect.Ptr {
		return errors.New("dest must be a pointer to a slice")
	}
	if value.IsNil() {
		return errors.New("dest cannot be a nil pointer")
	}

	slice := value.Type().Elem()
	if slice.Kind() != reflect.Slice {
		return fmt.Errorf("expected slice but got %s", slice.Kind())
	}

	elem := slice.Elem()
	isPointer := elem.Kind() == reflect.Ptr
	if isPointer {
		elem = elem.Elem()
	}

	direct := reflect.Indirect(value)
	direct.Set(reflect.MakeSlice(slice, 0, len(rows)))

	for _, row := range rows {
		item := reflect.New(elem)
		if err := mapToStruct(row, item.Interface()); err != nil {
			return err
		}

		if isPointer {
			direct.Set(reflect.Append(direct, item))
		} else {
			direct.Set(reflect.Append(direct, item.Elem()))
		}
	}

	return nil
}
