package thrift

import "fmt"

// I32 returns the value as an int32 if it is an integer type.
func (v Value) I32() (int32, bool) {
	switch v.Type {
	case TypeByte, TypeI16, TypeI32:
		return int32(v.Int), true
	}
	return 0, false
}

// I64 returns the value as an int64 if it is an integer type.
func (v Value) I64() (int64, bool) {
	switch v.Type {
	case TypeByte, TypeI16, TypeI32, TypeI64:
		return v.Int, true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	if v.Type == TypeTrue || v.Type == TypeFalse {
		return v.Bool, true
	}
	return false, false
}

func (v Value) AsString() (string, bool) {
	if v.Type != TypeBinary {
		return "", false
	}
	return string(v.Binary), true
}

func (v Value) AsStruct() (*Struct, bool) {
	if v.Type != TypeStruct || v.Struct == nil {
		return nil, false
	}
	return v.Struct, true
}

// AsList returns the elements of a list or set.
func (v Value) AsList() (*List, bool) {
	if (v.Type != TypeList && v.Type != TypeSet) || v.List == nil {
		return nil, false
	}
	return v.List, true
}

// WrongType builds the error returned when a known field id carries an
// unexpected wire type.
func WrongType(name string, f Field) error {
	return fmt.Errorf("field %d (%s): unexpected wire type %d", f.ID, name, f.Value.Type)
}
