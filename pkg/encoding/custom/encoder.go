package custom

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// TypeID представляет тип данных
type TypeID uint8

const (
	TypeInt32 TypeID = iota + 1
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeBool
	TypeString
	TypeMap
	TypeList
	TypeNil
	TypeBytes
	TypeUint64
)

// maxDepth ограничивает вложенность при декодировании чужих payload'ов
const maxDepth = 64

type EncodeError struct {
	Message string
}

func (e *EncodeError) Error() string {
	return e.Message
}

type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// Encode кодирует значение в бинарный формат.
//
// Поддерживаются nil, bool, целые, float32/float64, string, []byte, срезы/массивы
// и map со строковыми ключами (рекурсивно). Ключи map пишутся в отсортированном
// порядке, поэтому одно и то же значение всегда даёт одни и те же байты.
func Encode(value any) ([]byte, error) {
	return appendValue(nil, value)
}

func appendValue(buf []byte, value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return append(buf, byte(TypeNil)), nil
	case bool:
		if v {
			return append(buf, byte(TypeBool), 1), nil
		}
		return append(buf, byte(TypeBool), 0), nil
	case int:
		return appendInt64(buf, int64(v)), nil
	case int8:
		return appendInt64(buf, int64(v)), nil
	case int16:
		return appendInt64(buf, int64(v)), nil
	case int32:
		buf = append(buf, byte(TypeInt32))
		return binary.LittleEndian.AppendUint32(buf, uint32(v)), nil
	case int64:
		return appendInt64(buf, v), nil
	case uint:
		return appendUint64(buf, uint64(v)), nil
	case uint8:
		return appendUint64(buf, uint64(v)), nil
	case uint16:
		return appendUint64(buf, uint64(v)), nil
	case uint32:
		return appendUint64(buf, uint64(v)), nil
	case uint64:
		return appendUint64(buf, v), nil
	case float32:
		buf = append(buf, byte(TypeFloat32))
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v)), nil
	case float64:
		buf = append(buf, byte(TypeFloat64))
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v)), nil
	case string:
		buf = append(buf, byte(TypeString))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
		return append(buf, v...), nil
	case []byte:
		buf = append(buf, byte(TypeBytes))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
		return append(buf, v...), nil
	case []any:
		buf = append(buf, byte(TypeList))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
		var err error
		for _, item := range v {
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		return appendMap(buf, keys, func(k string) any { return v[k] })
	}

	return appendReflect(buf, reflect.ValueOf(value))
}

// appendReflect обрабатывает типизированные срезы, массивы, map[string]T и указатели
func appendReflect(buf []byte, rv reflect.Value) ([]byte, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(buf, byte(TypeNil)), nil
		}
		return appendValue(buf, rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return append(buf, byte(TypeNil)), nil
		}
		buf = append(buf, byte(TypeList))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(rv.Len()))
		var err error
		for i := 0; i < rv.Len(); i++ {
			if buf, err = appendValue(buf, rv.Index(i).Interface()); err != nil {
				return nil, err
			}
		}
		return buf, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &EncodeError{Message: fmt.Sprintf("unsupported map key type: %s", rv.Type().Key())}
		}
		keys := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		return appendMap(buf, keys, func(k string) any {
			return rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
		})

	case reflect.String:
		return appendValue(buf, rv.String())
	case reflect.Bool:
		return appendValue(buf, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int64:
		return appendInt64(buf, rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return appendUint64(buf, rv.Uint()), nil
	case reflect.Int32:
		return appendValue(buf, int32(rv.Int()))
	case reflect.Float32:
		return appendValue(buf, float32(rv.Float()))
	case reflect.Float64:
		return appendValue(buf, rv.Float())
	}

	return nil, &EncodeError{Message: fmt.Sprintf("unsupported type: %T", rv.Interface())}
}

func appendMap(buf []byte, keys []string, get func(string) any) ([]byte, error) {
	sort.Strings(keys)

	buf = append(buf, byte(TypeMap))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(keys)))

	var err error
	for _, k := range keys {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(k)))
		buf = append(buf, k...)
		if buf, err = appendValue(buf, get(k)); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendInt64(buf []byte, v int64) []byte {
	buf = append(buf, byte(TypeInt64))
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

func appendUint64(buf []byte, v uint64) []byte {
	buf = append(buf, byte(TypeUint64))
	return binary.LittleEndian.AppendUint64(buf, v)
}

// Decode декодирует значение из бинарного формата и возвращает число прочитанных байт
func Decode(data []byte) (any, int, error) {
	return decode(data, 0)
}

func decode(data []byte, depth int) (any, int, error) {
	if depth > maxDepth {
		return nil, 0, &DecodeError{Message: "nesting too deep"}
	}
	if len(data) < 1 {
		return nil, 0, &DecodeError{Message: "insufficient data"}
	}

	valueType := TypeID(data[0])
	offset := 1

	switch valueType {
	case TypeNil:
		return nil, offset, nil

	case TypeInt32:
		if len(data[offset:]) < 4 {
			return nil, 0, &DecodeError{Message: "insufficient data for int32"}
		}
		return int32(binary.LittleEndian.Uint32(data[offset:])), offset + 4, nil

	case TypeInt64:
		if len(data[offset:]) < 8 {
			return nil, 0, &DecodeError{Message: "insufficient data for int64"}
		}
		return int64(binary.LittleEndian.Uint64(data[offset:])), offset + 8, nil

	case TypeUint64:
		if len(data[offset:]) < 8 {
			return nil, 0, &DecodeError{Message: "insufficient data for uint64"}
		}
		return binary.LittleEndian.Uint64(data[offset:]), offset + 8, nil

	case TypeFloat32:
		if len(data[offset:]) < 4 {
			return nil, 0, &DecodeError{Message: "insufficient data for float32"}
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:])), offset + 4, nil

	case TypeFloat64:
		if len(data[offset:]) < 8 {
			return nil, 0, &DecodeError{Message: "insufficient data for float64"}
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data[offset:])), offset + 8, nil

	case TypeBool:
		if len(data[offset:]) < 1 {
			return nil, 0, &DecodeError{Message: "insufficient data for bool"}
		}
		return data[offset] != 0, offset + 1, nil

	case TypeString, TypeBytes:
		raw, n, err := readChunk(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		if valueType == TypeString {
			return string(raw), offset + n, nil
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, offset + n, nil

	case TypeList:
		if len(data[offset:]) < 4 {
			return nil, 0, &DecodeError{Message: "insufficient data for list length"}
		}
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if length > len(data[offset:]) {
			// каждый элемент занимает минимум один байт
			return nil, 0, &DecodeError{Message: "list length exceeds payload"}
		}
		items := make([]any, 0, length)
		for i := 0; i < length; i++ {
			item, n, err := decode(data[offset:], depth+1)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, item)
			offset += n
		}
		return items, offset, nil

	case TypeMap:
		if len(data[offset:]) < 4 {
			return nil, 0, &DecodeError{Message: "insufficient data for map size"}
		}
		count := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if count > len(data[offset:]) {
			return nil, 0, &DecodeError{Message: "map size exceeds payload"}
		}
		fields := make(map[string]any, count)
		for i := 0; i < count; i++ {
			key, n, err := readChunk(data[offset:])
			if err != nil {
				return nil, 0, err
			}
			offset += n

			item, n, err := decode(data[offset:], depth+1)
			if err != nil {
				return nil, 0, err
			}
			fields[string(key)] = item
			offset += n
		}
		return fields, offset, nil

	default:
		return nil, 0, &DecodeError{Message: fmt.Sprintf("unknown type: %d", valueType)}
	}
}

// readChunk читает блок вида [len uint32][bytes]
func readChunk(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, &DecodeError{Message: "insufficient data for length"}
	}
	length := int(binary.LittleEndian.Uint32(data))
	if len(data[4:]) < length {
		return nil, 0, &DecodeError{Message: "insufficient data for content"}
	}
	return data[4 : 4+length], 4 + length, nil
}
