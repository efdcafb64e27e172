package value

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// KeyClass partitions atomic items into groups that may compare equal.
type KeyClass uint8

const (
	ClassNumeric KeyClass = iota
	ClassString
	ClassBoolean
	ClassDateTime
)

// HashKey identifies a hash bucket. Items compare equal only if they share at
// least one key; sharing a key does not imply equality.
type HashKey struct {
	Class KeyClass
	Sum   uint64
}

// HashKeys returns every bucket an item must be found under for equality
// lookups. Untyped values are hashed as strings and, when castable, under the
// other classes too, because general comparison casts them to the type of the
// other operand.
func HashKeys(it Item, coll *Collation) ([]HashKey, error) {
	atom, err := Atomize(it)
	if err != nil {
		return nil, err
	}
	switch atom := atom.(type) {
	case Int:
		return []HashKey{numericKey(float64(atom))}, nil
	case Dbl:
		return []HashKey{numericKey(float64(atom))}, nil
	case Str:
		return []HashKey{stringKey(string(atom), coll)}, nil
	case Bool:
		return []HashKey{boolKey(bool(atom))}, nil
	case DateTime:
		return []HashKey{dateTimeKey(atom)}, nil
	case Untyped:
		keys := []HashKey{stringKey(string(atom), coll)}
		if d, err := Cast(atom, TypeDouble); err == nil {
			keys = append(keys, numericKey(float64(d.(Dbl))))
		}
		if b, err := Cast(atom, TypeBoolean); err == nil {
			keys = append(keys, boolKey(bool(b.(Bool))))
		}
		if dt, err := Cast(atom, TypeDateTime); err == nil {
			keys = append(keys, dateTimeKey(dt.(DateTime)))
		}
		return keys, nil
	}
	return nil, NewTypeError("item %s cannot be hashed", it)
}

func numericKey(f float64) HashKey {
	if f == 0 {
		f = 0 // normalize negative zero
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
	return HashKey{Class: ClassNumeric, Sum: murmur3.Sum64(buf)}
}

func stringKey(s string, coll *Collation) HashKey {
	return HashKey{Class: ClassString, Sum: murmur3.Sum64(coll.Key(s))}
}

func boolKey(b bool) HashKey {
	if b {
		return HashKey{Class: ClassBoolean, Sum: 1}
	}
	return HashKey{Class: ClassBoolean, Sum: 0}
}

func dateTimeKey(dt DateTime) HashKey {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(dt.UnixNano()))
	return HashKey{Class: ClassDateTime, Sum: murmur3.Sum64(buf)}
}
