package expr

import (
	"fmt"
	"reflect"

	"github.com/Shopify/go-lua"

	"github.com/aretw0/tendril/pkg/domain"
)

const tableIndex = -3

// push converts a state value to its Lua counterpart. Maps and nested states
// become tables, slices become 1-based arrays, and anything Lua cannot
// represent is pushed as its fmt string.
func push(L *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		L.PushNil()
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case float64:
		L.PushNumber(v)
	case []any:
		L.CreateTable(len(v), 0)
		for i, item := range v {
			L.PushInteger(i + 1)
			push(L, item)
			L.SetTable(tableIndex)
		}
	case map[string]any:
		L.CreateTable(0, len(v))
		for k, item := range v {
			L.PushString(k)
			push(L, item)
			L.SetTable(tableIndex)
		}
	case *domain.State:
		if v == nil {
			L.PushNil()
			return
		}
		L.CreateTable(0, v.Len())
		v.Range(func(k string, item any) bool {
			L.PushString(k)
			push(L, item)
			L.SetTable(tableIndex)
			return true
		})
	default:
		pushReflect(L, reflect.ValueOf(value))
	}
}

func pushReflect(L *lua.State, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		L.PushNumber(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		L.PushNumber(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		L.PushNumber(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			L.PushNil()
			return
		}
		L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			L.PushInteger(i + 1)
			push(L, rv.Index(i).Interface())
			L.SetTable(tableIndex)
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			L.PushString(fmt.Sprintf("%v", rv.Interface()))
			return
		}
		L.CreateTable(0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			L.PushString(iter.Key().String())
			push(L, iter.Value().Interface())
			L.SetTable(tableIndex)
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			L.PushNil()
			return
		}
		push(L, rv.Elem().Interface())
	default:
		L.PushString(fmt.Sprintf("%v", rv.Interface()))
	}
}
