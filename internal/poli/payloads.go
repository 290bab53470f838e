package poli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// TemplateMessage is the input of a template send: who receives it and the
// values interpolated into the template.
type TemplateMessage struct {
	Phone        string
	FirstName    string
	OperatorName string
}

func (m TemplateMessage) validate() error {
	if strings.TrimSpace(m.Phone) == "" {
		return errors.New("poli: phone required")
	}
	if strings.TrimSpace(m.FirstName) == "" {
		return errors.New("poli: first name required")
	}
	return nil
}

// ContactRequest creates a contact on the Poli side.
type ContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (r ContactRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Phone) == "" {
		return errors.New("poli: contact name and phone required")
	}
	return nil
}

// Contact is the subset of the contact resource the relay reads.
type Contact struct {
	ID string
}

// Chat is the subset of the chat resource the relay reads.
type Chat struct {
	ID string
}

// TemplateRequest sends a pre-approved template into an open chat.
type TemplateRequest struct {
	TemplateID string   `json:"template"`
	Params     []string `json:"params,omitempty"`
}

func (r TemplateRequest) validate() error {
	if strings.TrimSpace(r.TemplateID) == "" {
		return errors.New("poli: template id required")
	}
	return nil
}

type assignOperatorBody struct {
	UserID string `json:"user_id"`
}

// idEnvelope accepts both {"id": …} and {"data": {"id": …}} with string or
// numeric ids; the Poli response shape is not documented.
type idEnvelope struct {
	ID   json.RawMessage `json:"id"`
	Data *struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

func decodeID(body []byte) (string, error) {
	var env idEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", err
	}
	if id := rawID(env.ID); id != "" {
		return id, nil
	}
	if env.Data != nil {
		if id := rawID(env.Data.ID); id != "" {
			return id, nil
		}
	}
	return "", errors.New("poli: response carries no id")
}

func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}
