package queue

import "encoding/json"

// MessageVersion is the current payload schema version.
const MessageVersion = 1

// Message announces a submitted report to downstream department routing.
type Message struct {
	TicketID    string `json:"ticketId"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Department  string `json:"department"`
	SLA         string `json:"sla,omitempty"`
	Location    string `json:"location,omitempty"`
	ImageKey    string `json:"imageKey,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
	SubmittedAt string `json:"submittedAt"`
	Version     int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
