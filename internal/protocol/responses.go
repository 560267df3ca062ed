package protocol

import (
	"fmt"
	"strings"
)

// Fixed response strings. Clients match on these exact values, so they are
// part of the wire contract.
const (
	RespConnected        = "connected"
	RespAlreadyConnected = "already connected"
	RespReceived         = "received"
	RespBanned           = "you are banned"
	RespPrivateSent      = "private message sent"
	RespNotAuthorised    = "Not authorised"
	RespBadRequest       = "Bad request, status 400"
	RespNoSuchUser       = "no such user"
	RespRateLimited      = "message rate limit exceeded"
	RespBlocked          = "message blocked"
)

// LineEnding terminates every response written to a raw TCP connection.
const LineEnding = "\r\n"

// StrikePushed formats the acknowledgement for /user/push_strike.
func StrikePushed(name string) string {
	return fmt.Sprintf("Strike pushed to %s", name)
}

// NoUnread formats the empty-queue response for /receive_messages.
func NoUnread(category string) string {
	return fmt.Sprintf("no unread messages in %s category", category)
}

// StatusReport formats the multi-line /status response: ban flag, the known
// user names, and the caller's unread counts.
func StatusReport(banned bool, users []string, unreadCommon, unreadPrivate int) string {
	return fmt.Sprintf("is banned: %t %sUsers: %s%sunread_common: %d%sunread_private: %d",
		banned, LineEnding, strings.Join(users, ", "), LineEnding, unreadCommon, LineEnding, unreadPrivate)
}

// JoinLines joins rendered message lines for a multi-message response body.
func JoinLines(lines []string) string {
	return strings.Join(lines, LineEnding)
}
