package tools

import (
	"errors"
	"fmt"
)

// ErrInvalidResponseType is returned when parsing an unknown response type.
var ErrInvalidResponseType = errors.New("invalid response type")

// ResponseType tags the payload carried by an Envelope.
type ResponseType uint8

// Response types; the wire form is given in responseTypeMap.
const (
	TypeText ResponseType = iota + 1
	TypeEventInfo
	TypeAgendaList
	TypeSessionDetail
	TypeSemanticSearch
	TypeSpeakerDetail
	TypeSpeakerSearchSemantic
	TypeContact
	TypeAgendaNow
	TypeHealthStatus
	TypeError
)

// responseTypeMap is the single source of truth for response type strings.
var responseTypeMap = map[string]ResponseType{
	"TEXT":                           TypeText,
	"WIDGET_EVENT_INFO":              TypeEventInfo,
	"WIDGET_AGENDA_LIST":             TypeAgendaList,
	"WIDGET_SESSION_DETAIL":          TypeSessionDetail,
	"WIDGET_SEMANTIC_SEARCH":         TypeSemanticSearch,
	"WIDGET_SPEAKER_DETAIL":          TypeSpeakerDetail,
	"WIDGET_SPEAKER_SEARCH_SEMANTIC": TypeSpeakerSearchSemantic,
	"WIDGET_CONTACT":                 TypeContact,
	"WIDGET_AGENDA_NOW":              TypeAgendaNow,
	"WIDGET_HEALTH_STATUS":           TypeHealthStatus,
	"ERROR":                          TypeError,
}

var reverseResponseTypeMap map[ResponseType]string

func init() {
	reverseResponseTypeMap = make(map[ResponseType]string, len(responseTypeMap))

	for s, rt := range responseTypeMap {
		if prev, dup := reverseResponseTypeMap[rt]; dup {
			panic(fmt.Sprintf("tools: %q and %q map to the same response type", prev, s))
		}

		reverseResponseTypeMap[rt] = s
	}

	// Every declared constant needs a wire name.
	for rt := TypeText; rt <= TypeError; rt++ {
		if _, ok := reverseResponseTypeMap[rt]; !ok {
			panic(fmt.Sprintf("tools: response type %d has no string form", rt))
		}
	}
}

// String returns the wire form, or empty string for unknown values.
func (t ResponseType) String() string {
	return reverseResponseTypeMap[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t ResponseType) MarshalText() ([]byte, error) {
	s := t.String()
	if s == "" {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResponseType, t)
	}

	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ResponseType) UnmarshalText(b []byte) error {
	rt, ok := responseTypeMap[string(b)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidResponseType, string(b))
	}

	*t = rt

	return nil
}
