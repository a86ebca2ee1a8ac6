package handler

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// removalQuery is the accepted query string of the removal route.
// Any other parameter is rejected. The mb bound keeps mb * MiB within int64.
type removalQuery struct {
	TeamID string   `mapstructure:"teamId" validate:"omitempty,max=255"`
	Slug   string   `mapstructure:"slug" validate:"omitempty,max=255"`
	MB     *float64 `mapstructure:"mb" validate:"omitempty,gte=0,lte=8796093022207"`
}

var validate = validator.New()

// exactName makes parameter names case sensitive, so "TEAMID" is an unknown
// key rather than teamId.
func exactName(mapKey, fieldName string) bool {
	return mapKey == fieldName
}

func decodeQuery(values url.Values) (removalQuery, error) {
	var q removalQuery

	// Repeated parameters keep their last value.
	raw := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			raw[k] = v[len(v)-1]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		MatchName:        exactName,
		Result:           &q,
	})
	if err != nil {
		return q, err
	}
	if err := decoder.Decode(raw); err != nil {
		return q, fmt.Errorf("invalid query: %w", err)
	}
	if err := validate.Struct(q); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return q, fmt.Errorf("invalid query: %s failed on '%s' (value: %v)", errs[0].Field(), errs[0].Tag(), errs[0].Value())
		}
		return q, fmt.Errorf("invalid query: %w", err)
	}
	return q, nil
}
