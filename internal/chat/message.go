// Package chat holds the common-chat message type and the append-only history
// with timestamp-based expiry.
package chat

import (
	"fmt"
	"strings"
	"time"
)

// LineSeparator delimits the timestamp, author and body fields of a rendered
// message line.
const LineSeparator = "::"

// lineTimeFormat is the wall-clock text form used on the wire
// ("Mon Jan _2 15:04:05 2006").
const lineTimeFormat = time.ANSIC

// Message is one chat message, common or private.
type Message struct {
	Ts     time.Time `json:"ts"`
	Author string    `json:"author"`
	Body   string    `json:"body"`
}

// Line renders the message in its delimited wire form:
// <timestamp>::<author>::<body>.
func (m Message) Line() string {
	return m.Ts.Format(lineTimeFormat) + LineSeparator + m.Author + LineSeparator + m.Body
}

// Lines renders a batch of messages, preserving order.
func Lines(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Line()
	}
	return out
}

// ParseLine parses the delimited wire form back into a Message. The body may
// itself contain the separator, so only the first two fields are split off.
func ParseLine(line string) (Message, error) {
	parts := strings.SplitN(line, LineSeparator, 3)
	if len(parts) != 3 {
		return Message{}, fmt.Errorf("chat: malformed message line %q", line)
	}
	ts, err := time.Parse(lineTimeFormat, parts[0])
	if err != nil {
		return Message{}, fmt.Errorf("chat: bad timestamp in %q: %w", line, err)
	}
	return Message{Ts: ts, Author: parts[1], Body: parts[2]}, nil
}
