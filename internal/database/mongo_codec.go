package database

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

// newRegistry extends the default registry so money round-trips as
// Decimal128.
func newRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	reg.RegisterTypeDecoder(decimalType, bsoncodec.ValueDecoderFunc(decodeDecimal))
	reg.RegisterTypeEncoder(nullDecimalType, bsoncodec.ValueEncoderFunc(encodeNullDecimal))
	reg.RegisterTypeDecoder(nullDecimalType, bsoncodec.ValueDecoderFunc(decodeNullDecimal))
	return reg
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return d128, nil
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{Name: "encodeDecimal", Types: []reflect.Type{decimalType}, Received: val}
	}
	d128, err := toDecimal128(val.Interface().(decimal.Decimal))
	if err != nil {
		return err
	}
	return vw.WriteDecimal128(d128)
}

func encodeNullDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != nullDecimalType {
		return bsoncodec.ValueEncoderError{Name: "encodeNullDecimal", Types: []reflect.Type{nullDecimalType}, Received: val}
	}
	nd := val.Interface().(decimal.NullDecimal)
	if !nd.Valid {
		return vw.WriteNull()
	}
	d128, err := toDecimal128(nd.Decimal)
	if err != nil {
		return err
	}
	return vw.WriteDecimal128(d128)
}

// readDecimal accepts every numeric BSON type plus numeric strings, so
// documents written by other tools still decode. ok is false for null.
func readDecimal(vr bsonrw.ValueReader) (d decimal.Decimal, ok bool, err error) {
	switch vr.Type() {
	case bsontype.Decimal128:
		d128, err := vr.ReadDecimal128()
		if err != nil {
			return d, false, err
		}
		d, err = decimal.NewFromString(d128.String())
		return d, err == nil, err
	case bsontype.Double:
		f, err := vr.ReadDouble()
		return decimal.NewFromFloat(f), err == nil, err
	case bsontype.Int32:
		i, err := vr.ReadInt32()
		return decimal.NewFromInt32(i), err == nil, err
	case bsontype.Int64:
		i, err := vr.ReadInt64()
		return decimal.NewFromInt(i), err == nil, err
	case bsontype.String:
		s, err := vr.ReadString()
		if err != nil {
			return d, false, err
		}
		d, err = decimal.NewFromString(s)
		return d, err == nil, err
	case bsontype.Null:
		return d, false, vr.ReadNull()
	case bsontype.Undefined:
		return d, false, vr.ReadUndefined()
	default:
		return d, false, fmt.Errorf("cannot decode %v into a decimal", vr.Type())
	}
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != decimalType {
		return bsoncodec.ValueDecoderError{Name: "decodeDecimal", Types: []reflect.Type{decimalType}, Received: val}
	}
	d, _, err := readDecimal(vr)
	if err != nil {
		return err
	}
	val.Set(reflect.ValueOf(d))
	return nil
}

func decodeNullDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != nullDecimalType {
		return bsoncodec.ValueDecoderError{Name: "decodeNullDecimal", Types: []reflect.Type{nullDecimalType}, Received: val}
	}
	d, ok, err := readDecimal(vr)
	if err != nil {
		return err
	}
	val.Set(reflect.ValueOf(decimal.NullDecimal{Decimal: d, Valid: ok}))
	return nil
}
