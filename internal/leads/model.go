package leads

import (
	"bytes"
	"encoding/json"

	"github.com/wolfman30/olx-poli-relay/internal/poli"
)

// LeadEvent is the lead notification posted by OLX. It lives for one request.
type LeadEvent struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// ParseLeadEvent extracts name and phoneNumber from a webhook body. A body
// that is not a JSON object counts as empty.
func ParseLeadEvent(body []byte) (LeadEvent, error) {
	fields := decodeObject(body)
	name, okName := textField(fields["name"])
	phone, okPhone := textField(fields["phoneNumber"])
	if !okName || !okPhone {
		return LeadEvent{}, ErrMissingLeadFields
	}
	return LeadEvent{Name: name, PhoneNumber: phone}, nil
}

// ParseTestMessage extracts the manual trigger fields. Values are forwarded
// untouched.
func ParseTestMessage(body []byte) (poli.TemplateMessage, error) {
	fields := decodeObject(body)
	phone, okPhone := textField(fields["phone"])
	first, okFirst := textField(fields["firstName"])
	operator, okOperator := textField(fields["operatorName"])
	if !okPhone || !okFirst || !okOperator {
		return poli.TemplateMessage{}, ErrMissingTestFields
	}
	return poli.TemplateMessage{Phone: phone, FirstName: first, OperatorName: operator}, nil
}

func decodeObject(body []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return map[string]any{}
	}
	return fields
}

// textField applies the webhook's truthiness rule: missing, null, "", false
// and 0 are absent. Non-zero numbers are accepted as their literal text.
func textField(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case json.Number:
		f, err := val.Float64()
		if err != nil || f == 0 {
			return "", false
		}
		return val.String(), true
	default:
		return "", false
	}
}
