// Package reflector provides cached reflect.Type lookups. It is used by the
// transcoder for encode-time type dispatch and by the message bus for
// readable message-type names in logs, errors and metric labels.
package reflector

import (
	"reflect"
	"sync"
)

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

type TypeInfo struct {
	// Name is the fully qualified type name, e.g. "github.com/Migorithm/IAM/core/iam.CreateUser".
	Name string
	// Short is the package-local type name, e.g. "iam.CreateUser".
	Short string
	Type  reflect.Type
}

func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeOf((*T)(nil)).Elem())
}

func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	orig := t
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	ti = TypeInfo{
		Name:  t.PkgPath() + "." + t.Name(),
		Short: t.String(),
		Type:  t,
	}

	muCache.Lock()
	cache[orig] = ti
	muCache.Unlock()
	return ti
}
