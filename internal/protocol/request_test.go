package protocol

import (
	"errors"
	"testing"
)

func TestParseRequest_ValidForms(t *testing.T) {
	cases := []struct {
		line string
		want Request
	}{
		{"/connect&name=Fiel", Request{Kind: KindConnect, Name: "Fiel"}},
		{"/connect&name=Fiel\r\n", Request{Kind: KindConnect, Name: "Fiel"}},
		{"/status", Request{Kind: KindStatus}},
		{"/chat/send&data=Hello", Request{Kind: KindChatSend, Text: "Hello"}},
		{"/chat/send&data=", Request{Kind: KindChatSend, Text: ""}},
		{"/chat/send&data=a=b", Request{Kind: KindChatSend, Text: "a=b"}},
		{"/user/push_strike&name=Fiel", Request{Kind: KindPushStrike, Name: "Fiel"}},
		{
			"/user/send_message&name=Fiel&message=hi my friend",
			Request{Kind: KindSendPrivate, Name: "Fiel", Text: "hi my friend"},
		},
		{"/chat/read_last_messages", Request{Kind: KindReadLast}},
		{"/receive_messages&type=common", Request{Kind: KindReceive, Category: "common"}},
		{"/receive_messages&type=private", Request{Kind: KindReceive, Category: "private"}},
	}

	for _, tc := range cases {
		got, err := ParseRequest(tc.line)
		if err != nil {
			t.Errorf("ParseRequest(%q) error: %v", tc.line, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRequest(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestParseRequest_BadRequests(t *testing.T) {
	lines := []string{
		"",
		"hello",
		"/unknown",
		"/connect",
		"/connect&name=",
		"/user/push_strike",
		"/user/send_message&name=Fiel",
		"/user/send_message&message=hi",
		"/receive_messages",
		"/receive_messages&type=bogus",
		"/CONNECT&name=Fiel", // commands are case-sensitive
	}

	for _, line := range lines {
		if _, err := ParseRequest(line); !errors.Is(err, ErrBadRequest) {
			t.Errorf("ParseRequest(%q) err = %v, want ErrBadRequest", line, err)
		}
	}
}

func TestStatusReport(t *testing.T) {
	got := StatusReport(false, []string{"A", "B"}, 3, 1)
	want := "is banned: false \r\nUsers: A, B\r\nunread_common: 3\r\nunread_private: 1"
	if got != want {
		t.Errorf("StatusReport = %q, want %q", got, want)
	}
}

func TestNoUnread(t *testing.T) {
	if got := NoUnread(CategoryPrivate); got != "no unread messages in private category" {
		t.Errorf("NoUnread = %q", got)
	}
}
