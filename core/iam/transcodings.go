package iam

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Migorithm/IAM/core/es"
)

// TranscodingDecimalStr encodes arbitrary-precision amounts as their exact
// decimal string. Stable: the name is embedded in stored state.
const TranscodingDecimalStr = "decimal_str"

// RegisterTranscodings adds the value codecs IAM events need beyond the
// builtins.
func RegisterTranscodings(t *es.Transcoder) error {
	return t.Register(es.NewTranscoding(TranscodingDecimalStr,
		func(d decimal.Decimal) (any, error) {
			return d.String(), nil
		},
		func(d any) (decimal.Decimal, error) {
			s, ok := d.(string)
			if !ok {
				return decimal.Decimal{}, fmt.Errorf("want decimal string, got %T", d)
			}
			return decimal.NewFromString(s)
		},
	))
}

// NewTranscoder returns a transcoder loaded with the builtin and IAM
// transcodings.
func NewTranscoder() (*es.Transcoder, error) {
	t := es.NewTranscoder()
	if err := RegisterTranscodings(t); err != nil {
		return nil, err
	}
	return t, nil
}
