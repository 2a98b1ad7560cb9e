// Package tools implements the static tool catalog and the envelope every tool call returns.
package tools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/unsa/eventhub/internal/models"
)

// Envelope is the uniform result of a tool call: a typed payload plus a text rendering that is
// never empty.
type Envelope struct {
	ToolName     string       `json:"toolName"`
	Type         ResponseType `json:"type"`
	Data         any          `json:"data"`
	TextFallback string       `json:"textFallback"`
}

// Text returns a TEXT envelope carrying msg.
func Text(toolName, msg string) Envelope {
	if msg == "" {
		msg = noData(toolName)
	}

	return Envelope{ToolName: toolName, Type: TypeText, Data: msg, TextFallback: msg}
}

// Error returns an ERROR envelope carrying msg. An empty message is replaced with "<tool> failed".
func Error(toolName, msg string) Envelope {
	if strings.TrimSpace(msg) == "" {
		msg = toolName + " failed"
	}

	return Envelope{ToolName: toolName, Type: TypeError, Data: msg, TextFallback: msg}
}

// Wrap builds an envelope for payload, rendering its text fallback by type. A payload that does
// not match the type, or renders to nothing, gets "<tool>: no data".
func Wrap(toolName string, rt ResponseType, payload any) Envelope {
	var fallback string

	switch rt {
	case TypeText:
		return Text(toolName, stringPayload(payload))
	case TypeError:
		return Error(toolName, stringPayload(payload))
	case TypeEventInfo:
		if p, ok := payload.(EventInfo); ok {
			fallback = formatEventInfo(p)
		}
	case TypeAgendaList:
		if p, ok := payload.([]AgendaItem); ok {
			fallback = formatAgenda(p)
		}
	case TypeSessionDetail:
		if p, ok := payload.(SessionDetail); ok {
			fallback = formatSessionDetail(p)
		}
	case TypeSemanticSearch:
		if p, ok := payload.([]SemanticSearchHit); ok {
			fallback = formatSemanticSearch(p)
		}
	case TypeSpeakerDetail:
		if p, ok := payload.(SpeakerDetail); ok {
			fallback = formatSpeakerDetail(p)
		}
	case TypeSpeakerSearchSemantic:
		if p, ok := payload.([]SpeakerSemanticHit); ok {
			fallback = formatSpeakerSearch(p)
		}
	case TypeContact:
		if p, ok := payload.(Contact); ok {
			fallback = "Contact information: " + formatContacts(p.Contacts)
		}
	case TypeAgendaNow:
		if p, ok := payload.(AgendaNow); ok {
			fallback = formatAgendaNow(p)
		}
	case TypeHealthStatus:
		if p, ok := payload.(HealthStatus); ok {
			fallback = formatHealth(p)
		}
	}

	if strings.TrimSpace(fallback) == "" {
		fallback = noData(toolName)
	}

	return Envelope{ToolName: toolName, Type: rt, Data: payload, TextFallback: fallback}
}

func noData(toolName string) string {
	return toolName + ": no data"
}

func stringPayload(payload any) string {
	switch p := payload.(type) {
	case string:
		return p
	case fmt.Stringer:
		return p.String()
	default:
		return ""
	}
}

func formatEventInfo(e EventInfo) string {
	return fmt.Sprintf("%s (%d)\n%s\nVenue: %s\nDates: %s to %s",
		e.Name, e.Year,
		models.StringValue(e.Description),
		models.StringValue(e.Venue),
		models.StringValue(e.Dates.Start),
		models.StringValue(e.Dates.End),
	)
}

func formatAgenda(items []AgendaItem) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("[%d] %s - %s (%s)", it.Seq, it.StartsAt, it.Title, it.Speaker.Name)
	}

	return strings.Join(lines, "\n")
}

func formatSessionDetail(s SessionDetail) string {
	return fmt.Sprintf("%s\nSpeaker: %s (%s)\nTime: %s - %s\n\n%s",
		s.Title,
		s.Speaker.Name,
		models.StringValue(s.Speaker.Org),
		s.StartsAt.Format(agendaTimeLayout),
		s.EndsAt.Format(agendaTimeLayout),
		models.StringValue(s.AbstractText),
	)
}

func formatSemanticSearch(hits []SemanticSearchHit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("%s (Speaker: %s)\n%s", h.Title, h.Speaker.Name, models.StringValue(h.AbstractText))
	}

	return strings.Join(blocks, "\n\n")
}

func formatSpeakerDetail(s SpeakerDetail) string {
	session := "No session assigned"
	if s.Session != nil {
		session = s.Session.Title
	}

	return fmt.Sprintf("%s - %s at %s\n%s\nSession: %s",
		s.FullName,
		models.StringValue(s.JobTitle),
		models.StringValue(s.OrgName),
		models.StringValue(s.Bio),
		session,
	)
}

func formatSpeakerSearch(hits []SpeakerSemanticHit) string {
	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = fmt.Sprintf("%s - %s at %s (score %.2f)",
			h.FullName, models.StringValue(h.JobTitle), models.StringValue(h.OrgName), h.Score)
	}

	return strings.Join(lines, "\n")
}

// formatContacts renders contacts as "key: value" pairs in key order.
func formatContacts(contacts map[string]any) string {
	if len(contacts) == 0 {
		return "none"
	}

	keys := make([]string, 0, len(contacts))
	for k := range contacts {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s: %v", k, contacts[k])
	}

	return strings.Join(pairs, ", ")
}

func formatAgendaNow(a AgendaNow) string {
	var b strings.Builder

	b.WriteString("Current and Next Sessions:\n")

	if a.Current != nil {
		b.WriteString("Current: " + a.Current.Title + "\n")
	}

	if a.Next != nil {
		b.WriteString("Next: " + a.Next.Title + "\n")
	}

	return b.String()
}

func formatHealth(h HealthStatus) string {
	years := make([]string, len(h.EventYears))
	for i, y := range h.EventYears {
		years[i] = strconv.Itoa(y)
	}

	return fmt.Sprintf("Health Status:\nDatabase: %s\nEmbeddings: %s\nAvailable years: [%s]",
		h.DB, h.Embeddings, strings.Join(years, ", "))
}
