package reflector

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Field int
}

func TestTypeInfoOf(t *testing.T) {
	ti := TypeInfoOf(sample{})

	require.Equal(t, "reflector.sample", ti.Short)
	require.Contains(t, ti.Name, "internal/reflector.sample")
	require.Equal(t, reflect.TypeOf(sample{}), ti.Type)
}

func TestTypeInfoOf_PointerDereferences(t *testing.T) {
	byValue := TypeInfoOf(sample{})
	byPointer := TypeInfoOf(&sample{})

	require.Equal(t, byValue.Short, byPointer.Short)
	require.Equal(t, byValue.Name, byPointer.Name)
	require.Equal(t, byValue.Type, byPointer.Type)
}

func TestTypeInfoFor(t *testing.T) {
	require.Equal(t, TypeInfoOf(sample{}), TypeInfoFor[sample]())
	require.Equal(t, TypeInfoOf(sample{}), TypeInfoFor[*sample]())
}

func TestTypeInfoForType_Nil(t *testing.T) {
	require.Equal(t, TypeInfo{}, TypeInfoForType(nil))
}

func TestTypeInfoForType_Cached(t *testing.T) {
	first := TypeInfoForType(reflect.TypeOf(sample{}))
	second := TypeInfoForType(reflect.TypeOf(sample{}))

	require.Equal(t, first, second)
}
