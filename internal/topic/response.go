package topic

import "strconv"

// Kind identifies which variant a Response holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Response is one decoded reply. Only the field matching Kind is meaningful.
type Response struct {
	Kind   Kind
	Number float32
	Text   string
}

// Null returns an empty response.
func Null() Response { return Response{Kind: KindNull} }

// Float returns a numeric response.
func Float(v float32) Response { return Response{Kind: KindFloat, Number: v} }

// String returns a text response.
func String(s string) Response { return Response{Kind: KindString, Text: s} }

// AsString returns the text of a String response.
func (r Response) AsString() (string, bool) {
	return r.Text, r.Kind == KindString
}

// AsFloat returns the value of a Float response.
func (r Response) AsFloat() (float32, bool) {
	return r.Number, r.Kind == KindFloat
}

func (r Response) String() string {
	switch r.Kind {
	case KindFloat:
		return "float(" + strconv.FormatFloat(float64(r.Number), 'g', -1, 32) + ")"
	case KindString:
		return "string(" + strconv.Quote(r.Text) + ")"
	default:
		return r.Kind.String()
	}
}
