package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// StringList holds product tags. Documents may store it as a single string or
// an array; SQL rows store it as a JSON array in a TEXT column.
type StringList []string

// UnmarshalBSONValue accepts both string and array BSON types so documents
// written by hand with a single tag still decode.
func (s *StringList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*s = nil
		return nil
	case bsontype.Array:
		var values []string
		if err := bson.UnmarshalValue(t, data, &values); err != nil {
			return err
		}
		*s = values
		return nil
	case bsontype.String:
		var value string
		if err := bson.UnmarshalValue(t, data, &value); err != nil {
			return err
		}
		*s = splitTags(value)
		return nil
	default:
		return fmt.Errorf("cannot decode %s into StringList", t)
	}
}

// MarshalBSONValue always stores the list as an array.
func (s StringList) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if s == nil {
		return bson.MarshalValue([]string{})
	}
	return bson.MarshalValue([]string(s))
}

// Scan implements sql.Scanner. A JSON array is expected; a plain
// comma-separated string is tolerated.
func (s *StringList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
		*s = values
		return nil
	}
	*s = splitTags(raw)
	return nil
}

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Normalize trims entries and drops blanks and duplicates, keeping order.
func (s StringList) Normalize() StringList {
	seen := map[string]struct{}{}
	out := make(StringList, 0, len(s))
	for _, v := range s {
		tag := strings.TrimSpace(v)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func splitTags(value string) []string {
	return StringList(strings.Split(value, ",")).Normalize()
}
