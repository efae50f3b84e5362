package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"xau-signal-bot/internal/types"
)

var validate = validator.New()

// rawSignal mirrors the model's JSON. Pointers distinguish a missing or
// null key from a zero value.
type rawSignal struct {
	ShortTermAction *string  `json:"short_term_action" validate:"required"`
	ShortTermTP     *float64 `json:"short_term_tp" validate:"required"`
	ShortTermSL     *float64 `json:"short_term_sl" validate:"required"`
	ShortTermReason *string  `json:"short_term_reason" validate:"required"`
	LongTermAction  *string  `json:"long_term_action" validate:"required"`
	LongTermTP      *float64 `json:"long_term_tp" validate:"required"`
	LongTermSL      *float64 `json:"long_term_sl" validate:"required"`
	LongTermReason  *string  `json:"long_term_reason" validate:"required"`
	Confidence      *float64 `json:"confidence" validate:"required,gte=0,lte=100"`

	PriceAfter15m *float64 `json:"price_after_15m"`
	PriceAfter1h  *float64 `json:"price_after_1h"`
	PriceAfter4h  *float64 `json:"price_after_4h"`
	PriceAfter1d  *float64 `json:"price_after_1d"`
}

type rawProjections struct {
	PriceAfter15m *float64 `validate:"required"`
	PriceAfter1h  *float64 `validate:"required"`
	PriceAfter4h  *float64 `validate:"required"`
	PriceAfter1d  *float64 `validate:"required"`
}

// ParseSignal decodes a model answer into a Signal stamped with ts. Every
// failure wraps types.ErrMalformedResponse.
func ParseSignal(content string, extended bool, ts time.Time) (types.Signal, error) {
	body := stripFence(content)
	if body == "" {
		return types.Signal{}, malformed("empty response")
	}
	if body[0] != '{' {
		return types.Signal{}, malformed("response is not a JSON object")
	}

	var raw rawSignal
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return types.Signal{}, malformed(err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return types.Signal{}, malformed("trailing data after JSON object")
	}

	if err := validate.Struct(raw); err != nil {
		return types.Signal{}, malformed(describe(err))
	}

	short, ok := types.ParseAction(*raw.ShortTermAction)
	if !ok {
		return types.Signal{}, malformed(fmt.Sprintf("short_term_action %q is not buy, sell or hold", *raw.ShortTermAction))
	}
	long, ok := types.ParseAction(*raw.LongTermAction)
	if !ok {
		return types.Signal{}, malformed(fmt.Sprintf("long_term_action %q is not buy, sell or hold", *raw.LongTermAction))
	}
	if c := *raw.Confidence; c != math.Trunc(c) {
		return types.Signal{}, malformed(fmt.Sprintf("confidence %v is not an integer", c))
	}

	sig := types.Signal{
		Timestamp:       ts,
		ShortTermAction: short,
		ShortTermTP:     *raw.ShortTermTP,
		ShortTermSL:     *raw.ShortTermSL,
		ShortTermReason: types.TruncateReason(*raw.ShortTermReason),
		LongTermAction:  long,
		LongTermTP:      *raw.LongTermTP,
		LongTermSL:      *raw.LongTermSL,
		LongTermReason:  types.TruncateReason(*raw.LongTermReason),
		Confidence:      int(*raw.Confidence),
	}

	if extended {
		proj := rawProjections{raw.PriceAfter15m, raw.PriceAfter1h, raw.PriceAfter4h, raw.PriceAfter1d}
		if err := validate.Struct(proj); err != nil {
			return types.Signal{}, malformed(describe(err))
		}
		sig.Projections = &types.Projections{
			PriceAfter15m: *proj.PriceAfter15m,
			PriceAfter1h:  *proj.PriceAfter1h,
			PriceAfter4h:  *proj.PriceAfter4h,
			PriceAfter1d:  *proj.PriceAfter1d,
		}
	}
	return sig, nil
}

// stripFence removes a surrounding ```json ... ``` wrapper.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, "missing "+fieldKey(fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", fieldKey(fe.Field()), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

var fieldKeys = map[string]string{
	"ShortTermAction": "short_term_action",
	"ShortTermTP":     "short_term_tp",
	"ShortTermSL":     "short_term_sl",
	"ShortTermReason": "short_term_reason",
	"LongTermAction":  "long_term_action",
	"LongTermTP":      "long_term_tp",
	"LongTermSL":      "long_term_sl",
	"LongTermReason":  "long_term_reason",
	"Confidence":      "confidence",
	"PriceAfter15m":   "price_after_15m",
	"PriceAfter1h":    "price_after_1h",
	"PriceAfter4h":    "price_after_4h",
	"PriceAfter1d":    "price_after_1d",
}

func fieldKey(f string) string {
	if k, ok := fieldKeys[f]; ok {
		return k
	}
	return f
}

func malformed(detail string) error {
	return fmt.Errorf("%w: %s", types.ErrMalformedResponse, detail)
}
