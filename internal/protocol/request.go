// Package protocol defines the plain-text wire protocol spoken by chat
// clients. A request is a single line: a command path, then &-separated
// key=value fields. The command set is fixed and case-sensitive:
//
//	/connect&name=<N>
//	/status
//	/chat/send&data=<text>
//	/user/push_strike&name=<N>
//	/user/send_message&name=<N>&message=<text>
//	/chat/read_last_messages
//	/receive_messages&type=<common|private>
//
// Responses are plain text terminated by CRLF.
package protocol

import (
	"fmt"
	"strings"
)

// Request kinds produced by ParseRequest.
const (
	KindConnect     = "connect"
	KindStatus      = "status"
	KindChatSend    = "chat_send"
	KindPushStrike  = "push_strike"
	KindSendPrivate = "send_private"
	KindReadLast    = "read_last"
	KindReceive     = "receive"
)

// Command paths as they appear on the wire.
const (
	CmdConnect     = "/connect"
	CmdStatus      = "/status"
	CmdChatSend    = "/chat/send"
	CmdPushStrike  = "/user/push_strike"
	CmdSendPrivate = "/user/send_message"
	CmdReadLast    = "/chat/read_last_messages"
	CmdReceive     = "/receive_messages"
)

// Unread-queue categories accepted by /receive_messages.
const (
	CategoryCommon  = "common"
	CategoryPrivate = "private"
)

// ErrBadRequest marks any line that does not classify as a known command or
// is missing a required field. Handlers answer it with RespBadRequest and
// keep the connection open.
var ErrBadRequest = fmt.Errorf("protocol: bad request")

// Request is one parsed client request.
type Request struct {
	Kind     string
	Name     string // /connect, /user/push_strike, /user/send_message
	Text     string // /chat/send, /user/send_message
	Category string // /receive_messages
}

// ParseRequest classifies a trimmed request line by its command path and
// extracts the fields the command requires. Unknown commands and missing
// fields return ErrBadRequest; the caller must never crash on client input.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	cmd, rest, _ := strings.Cut(line, "&")
	fields := parseFields(rest)

	switch cmd {
	case CmdConnect:
		name := fields["name"]
		if name == "" {
			return Request{}, ErrBadRequest
		}
		return Request{Kind: KindConnect, Name: name}, nil

	case CmdStatus:
		return Request{Kind: KindStatus}, nil

	case CmdChatSend:
		text, ok := fields["data"]
		if !ok {
			return Request{}, ErrBadRequest
		}
		return Request{Kind: KindChatSend, Text: text}, nil

	case CmdPushStrike:
		name := fields["name"]
		if name == "" {
			return Request{}, ErrBadRequest
		}
		return Request{Kind: KindPushStrike, Name: name}, nil

	case CmdSendPrivate:
		name := fields["name"]
		text, ok := fields["message"]
		if name == "" || !ok {
			return Request{}, ErrBadRequest
		}
		return Request{Kind: KindSendPrivate, Name: name, Text: text}, nil

	case CmdReadLast:
		return Request{Kind: KindReadLast}, nil

	case CmdReceive:
		cat := fields["type"]
		if cat != CategoryCommon && cat != CategoryPrivate {
			return Request{}, ErrBadRequest
		}
		return Request{Kind: KindReceive, Category: cat}, nil
	}

	return Request{}, ErrBadRequest
}

// parseFields splits "k1=v1&k2=v2" into a map. A field without '=' is
// ignored; a later duplicate key wins, matching the forgiving behaviour the
// protocol has always had.
func parseFields(s string) map[string]string {
	fields := make(map[string]string)
	if s == "" {
		return fields
	}
	for _, part := range strings.Split(s, "&") {
		key, val, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			continue
		}
		fields[key] = val
	}
	return fields
}
