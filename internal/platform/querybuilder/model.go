package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

type modelField struct {
	column string
	index  int
}

// fieldCache holds the db-tagged fields of each struct type seen so far.
var fieldCache sync.Map // reflect.Type -> []modelField

// InsertModel builds an INSERT for every db-tagged field of model, followed by
// suffix (typically an ON CONFLICT clause).
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	value, err := structValue(model)
	if err != nil {
		return "", nil, err
	}
	fields, err := fieldsOf(value.Type())
	if err != nil {
		return "", nil, err
	}

	cols := make([]string, len(fields))
	vals := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = f.column
		vals[i] = value.Field(f.index).Interface()
	}
	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix).
		ToSQL()
}

// Columns lists the db-tagged columns of model in field order.
func Columns(model any) ([]string, error) {
	value, err := structValue(model)
	if err != nil {
		return nil, err
	}
	fields, err := fieldsOf(value.Type())
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.column
	}
	return cols, nil
}

// MustColumns is Columns for package-level declarations.
func MustColumns(model any) []string {
	cols, err := Columns(model)
	if err != nil {
		panic(err)
	}
	return cols
}

func structValue(model any) (reflect.Value, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return reflect.Value{}, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("model must be struct, got %s", value.Kind())
	}
	return value, nil
}

func fieldsOf(typ reflect.Type) ([]modelField, error) {
	if cached, ok := fieldCache.Load(typ); ok {
		return cached.([]modelField), nil
	}

	fields := make([]modelField, 0, typ.NumField())
	seen := make(map[string]struct{}, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		if _, dup := seen[col]; dup {
			return nil, fmt.Errorf("model %s maps column %s twice", typ.Name(), col)
		}
		seen[col] = struct{}{}
		fields = append(fields, modelField{column: col, index: i})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("model %s has no db columns", typ.Name())
	}

	fieldCache.Store(typ, fields)
	return fields, nil
}
