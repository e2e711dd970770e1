package basket

import (
	"bytes"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedVersion is returned when a snapshot was written by a newer
// schema than this build understands.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// EncodeSnapshot serialises s as JSON.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	var encErr error
	e.ObjStart()
	e.FieldStart("version")
	e.Int(s.Version)

	if s.Elements != nil {
		e.FieldStart("basketElements")
		e.ArrStart()
		for _, es := range s.Elements {
			if err := encodeElement(e, es); err != nil {
				encErr = err
			}
		}
		e.ArrEnd()
	}
	if s.Positions != nil {
		e.FieldStart("positions")
		e.ObjStart()
		for _, id := range slices.Sorted(maps.Keys(s.Positions)) {
			e.FieldStart(id)
			e.Int(s.Positions[id])
		}
		e.ObjEnd()
	}
	encodeOptStr(e, "deliveryAddressId", s.DeliveryAddressID)
	encodeOptStr(e, "paymentAddressId", s.PaymentAddressID)
	encodeOptStr(e, "paymentMethodCode", s.PaymentMethodCode)
	if s.NextSlot != nil {
		e.FieldStart("cptElement")
		e.Int(*s.NextSlot)
	}
	encodeOptStr(e, "deliveryMethodCode", s.DeliveryMethodCode)
	encodeOptStr(e, "customerId", s.CustomerID)
	if s.Options != nil {
		e.FieldStart("options")
		if err := encodeAny(e, s.Options); err != nil {
			encErr = err
		}
	}
	encodeOptStr(e, "locale", s.Locale)
	encodeOptStr(e, "currency", s.Currency)
	e.ObjEnd()

	if encErr != nil {
		return nil, errors.Wrap(encErr, "encode snapshot")
	}
	return slices.Clone(e.Bytes()), nil
}

func encodeElement(e *jx.Encoder, es ElementSnapshot) error {
	e.ObjStart()
	e.FieldStart("slot")
	e.Int(es.Slot)
	e.FieldStart("productId")
	e.Str(es.ProductID)
	e.FieldStart("productType")
	e.Str(es.ProductType)
	e.FieldStart("quantity")
	e.Int(es.Quantity)
	e.FieldStart("price")
	e.Str(es.Price.String())
	e.FieldStart("vatRate")
	e.Str(es.VatRate.String())
	e.FieldStart("delete")
	e.Bool(es.Deleted)
	var err error
	if es.Options != nil {
		e.FieldStart("options")
		err = encodeAny(e, es.Options)
	}
	e.ObjEnd()
	return err
}

func encodeOptStr(e *jx.Encoder, field string, v *string) {
	e.FieldStart(field)
	if v == nil {
		e.Null()
		return
	}
	e.Str(*v)
}

// NormalizeOption converts an option value to the kinds the snapshot codec
// keeps intact: integers become int, floats become float64 and decimals
// become their string form. Slices and maps are converted recursively.
// Values of other types are returned unchanged and fail encoding.
func NormalizeOption(v any) any {
	switch v := v.(type) {
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return normalizeUint(uint64(v))
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return normalizeUint(v)
	case float32:
		return float64(v)
	case decimal.Decimal:
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeOption(item)
		}
		return out
	case map[string]any:
		return normalizeOptions(v)
	default:
		return v
	}
}

func normalizeUint(v uint64) any {
	if v > math.MaxInt {
		return float64(v)
	}
	return int(v)
}

func normalizeOptions(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeOption(v)
	}
	return out
}

// EncodeOption writes an option value in snapshot form.
func EncodeOption(e *jx.Encoder, v any) error { return encodeAny(e, v) }

// DecodeOption reads an option value written by EncodeOption.
func DecodeOption(d *jx.Decoder) (any, error) { return decodeAny(d) }

// encodeAny writes option values. Supported: nil, string, bool, int,
// float64, []any and map[string]any. Integral floats are written with a
// fractional part so they decode back as float64.
func encodeAny(e *jx.Encoder, v any) error {
	switch v := v.(type) {
	case nil:
		e.Null()
	case string:
		e.Str(v)
	case bool:
		e.Bool(v)
	case int:
		e.Int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("unsupported option value %v", v)
		}
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			e.RawStr(strconv.FormatFloat(v, 'f', 1, 64))
			return nil
		}
		e.Float64(v)
	case []any:
		e.ArrStart()
		for _, item := range v {
			if err := encodeAny(e, item); err != nil {
				return err
			}
		}
		e.ArrEnd()
	case map[string]any:
		e.ObjStart()
		for _, k := range slices.Sorted(maps.Keys(v)) {
			e.FieldStart(k)
			if err := encodeAny(e, v[k]); err != nil {
				return err
			}
		}
		e.ObjEnd()
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, decimal.Decimal:
		return encodeAny(e, NormalizeOption(v))
	default:
		return errors.Errorf("unsupported option type %T", v)
	}
	return nil
}

// DecodeSnapshot parses a snapshot written by EncodeSnapshot. Null and
// missing fields stay nil so that Restore keeps the current basket state.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "version":
			v, err := d.Int()
			if err != nil {
				return err
			}
			s.Version = v
		case "basketElements":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s.Elements = []ElementSnapshot{}
			return d.Arr(func(d *jx.Decoder) error {
				es, err := decodeElement(d)
				if err != nil {
					return err
				}
				s.Elements = append(s.Elements, es)
				return nil
			})
		case "positions":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s.Positions = make(map[string]int)
			return d.Obj(func(d *jx.Decoder, id string) error {
				slot, err := d.Int()
				if err != nil {
					return err
				}
				s.Positions[id] = slot
				return nil
			})
		case "cptElement":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Int()
			if err != nil {
				return err
			}
			s.NextSlot = &v
		case "deliveryAddressId":
			return decodeOptStr(d, &s.DeliveryAddressID)
		case "paymentAddressId":
			return decodeOptStr(d, &s.PaymentAddressID)
		case "paymentMethodCode":
			return decodeOptStr(d, &s.PaymentMethodCode)
		case "deliveryMethodCode":
			return decodeOptStr(d, &s.DeliveryMethodCode)
		case "customerId":
			return decodeOptStr(d, &s.CustomerID)
		case "locale":
			return decodeOptStr(d, &s.Locale)
		case "currency":
			return decodeOptStr(d, &s.Currency)
		case "options":
			if d.Next() == jx.Null {
				return d.Null()
			}
			opts, err := decodeMap(d)
			if err != nil {
				return err
			}
			s.Options = opts
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "decode snapshot")
	}
	if s.Version > SnapshotVersion {
		return Snapshot{}, errors.Wrapf(ErrUnsupportedVersion, "version %d", s.Version)
	}
	return s, nil
}

func decodeElement(d *jx.Decoder) (ElementSnapshot, error) {
	var es ElementSnapshot
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "slot":
			es.Slot, err = d.Int()
		case "productId":
			es.ProductID, err = d.Str()
		case "productType":
			es.ProductType, err = d.Str()
		case "quantity":
			es.Quantity, err = d.Int()
		case "price":
			es.Price, err = decodeDecimal(d)
		case "vatRate":
			es.VatRate, err = decodeDecimal(d)
		case "delete":
			es.Deleted, err = d.Bool()
		case "options":
			if d.Next() == jx.Null {
				return d.Null()
			}
			es.Options, err = decodeMap(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return es, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

func decodeOptStr(d *jx.Decoder, dst **string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func decodeMap(d *jx.Decoder) (map[string]any, error) {
	m := make(map[string]any)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		v, err := decodeAny(d)
		if err != nil {
			return err
		}
		m[key] = v
		return nil
	})
	return m, err
}

// decodeAny reads an option value. Numbers without a fraction or exponent
// decode as int, the rest as float64.
func decodeAny(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		if bytes.ContainsAny(n, ".eE") {
			return n.Float64()
		}
		v, err := n.Int64()
		return int(v), err
	case jx.Array:
		items := []any{}
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeAny(d)
			if err != nil {
				return err
			}
			items = append(items, v)
			return nil
		})
		return items, err
	case jx.Object:
		return decodeMap(d)
	default:
		return nil, errors.Errorf("unexpected json type %v", d.Next())
	}
}
