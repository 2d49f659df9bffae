package extract

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/ppiankov/materialsio/internal/model"
)

// ToRecord converts a tagged struct into a Record through its JSON form,
// so the record holds only maps, slices and scalars.
func ToRecord(v any) (model.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// DecodeOptions reads parser options out of a context. Keys follow the
// `mapstructure` tags of out; unknown keys are ignored and string values are
// converted when possible ("true" -> true).
func DecodeOptions(ctx model.Context, out any) error {
	if len(ctx) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(ctx)); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}

// ReflectSchema builds the output schema of a parser from its record type
func ReflectSchema(v any) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(v)
	schema.Version = SchemaDraft
	return schema
}
