package actionlog

import (
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

// marshalFields serializes a field map to canonical JSON for storage.
// A nil map is stored as the empty object.
func marshalFields(obj ir.Object) (string, error) {
	if obj == nil {
		obj = ir.Object{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields deserializes a stored field map.
// The empty object comes back as nil to keep records compact.
func unmarshalFields(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal fields: not an object: %T", v)
	}
	return obj, nil
}
