package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/directory"
	"github.com/parley/chatd/internal/metrics"
	"github.com/parley/chatd/internal/protocol"
	"github.com/parley/chatd/internal/ratelimit"
)

// dispatch parses one request line and routes it. Anything an
// unauthenticated connection sends other than /connect is refused on that
// socket alone; once authenticated, every response fans out to all of the
// user's live connections.
func (s *Server) dispatch(c *Conn, line string) {
	req, err := protocol.ParseRequest(line)

	if c.name == "" {
		if err != nil || req.Kind != protocol.KindConnect {
			c.WriteLine(protocol.RespNotAuthorised)
			return
		}
		s.handleConnect(c, req.Name)
		return
	}

	if err != nil {
		s.respond(c.name, protocol.RespBadRequest)
		return
	}

	switch req.Kind {
	case protocol.KindConnect:
		// The connection already belongs to a user; it cannot be rebound.
		s.respond(c.name, protocol.RespAlreadyConnected)
	case protocol.KindStatus:
		s.handleStatus(c)
	case protocol.KindChatSend:
		s.handleChatSend(c, req.Text)
	case protocol.KindPushStrike:
		s.handlePushStrike(c, req.Name)
	case protocol.KindSendPrivate:
		s.handleSendPrivate(c, req.Name, req.Text)
	case protocol.KindReadLast:
		s.handleReadLast(c)
	case protocol.KindReceive:
		s.handleReceive(c, req.Category)
	default:
		s.respond(c.name, protocol.RespBadRequest)
	}
}

// respond writes one response to every live connection of name.
func (s *Server) respond(name, resp string) {
	for _, w := range s.dir.Writers(name) {
		if err := w.WriteLine(resp); err != nil {
			log.Printf("server: write to %q failed: %v", name, err)
		}
	}
}

func (s *Server) handleConnect(c *Conn, name string) {
	s.dir.Attach(name, c.ID, c)
	c.name = name
	log.Printf("server: user %q connected id=%s", name, c.ID)
	s.respond(name, protocol.RespConnected)
}

func (s *Server) handleStatus(c *Conn) {
	st, err := s.dir.UserStatus(c.name)
	if err != nil {
		s.respond(c.name, protocol.RespBadRequest)
		return
	}
	s.respond(c.name, protocol.StatusReport(st.Banned, s.dir.Names(), st.UnreadCommon, st.UnreadPrivate))
}

func (s *Server) handleChatSend(c *Conn, text string) {
	if s.dir.IsBanned(c.name) {
		log.Printf("server: banned user %q tried to post", c.name)
		s.respond(c.name, protocol.RespBanned)
		return
	}
	if err := chat.ValidateMessage(text); err != nil {
		s.respond(c.name, protocol.RespBadRequest)
		return
	}
	if !s.limiter.Allow(context.Background(), c.name, ratelimit.RuleChatPost) {
		metrics.MessagesTotal.WithLabelValues("rate_limited").Inc()
		s.respond(c.name, protocol.RespRateLimited)
		return
	}
	if s.blockAndStrike(c.name, text) {
		return
	}

	s.postMu.Lock()
	msg := s.history.Append(c.name, text)
	live := s.dir.FanOut(msg)
	s.postMu.Unlock()

	line := msg.Line()
	for _, w := range live {
		if err := w.WriteLine(line); err != nil {
			log.Printf("server: broadcast write failed: %v", err)
		}
	}

	metrics.MessagesTotal.WithLabelValues("common").Inc()
	metrics.HistorySize.Set(float64(s.history.Len()))
	s.events.PublishChatMessage(c.name, text)
	s.respond(c.name, protocol.RespReceived)
}

func (s *Server) handlePushStrike(c *Conn, target string) {
	banned, err := s.dir.PushStrike(target)
	if err != nil {
		if errors.Is(err, directory.ErrUnknownUser) {
			s.respond(c.name, protocol.RespNoSuchUser)
			return
		}
		s.respond(c.name, protocol.RespBadRequest)
		return
	}

	metrics.StrikesTotal.Inc()
	s.events.PublishStrike(c.name, target)
	if banned {
		metrics.BansTotal.Inc()
		s.events.PublishBan(target)
		log.Printf("server: user %q banned after strike from %q", target, c.name)
	}
	s.respond(c.name, protocol.StrikePushed(target))
}

func (s *Server) handleSendPrivate(c *Conn, target, text string) {
	if s.dir.IsBanned(c.name) {
		log.Printf("server: banned user %q tried to message %q", c.name, target)
		s.respond(c.name, protocol.RespBanned)
		return
	}
	if err := chat.ValidateMessage(text); err != nil {
		s.respond(c.name, protocol.RespBadRequest)
		return
	}
	if !s.limiter.Allow(context.Background(), c.name, ratelimit.RulePrivate) {
		metrics.MessagesTotal.WithLabelValues("rate_limited").Inc()
		s.respond(c.name, protocol.RespRateLimited)
		return
	}
	if s.blockAndStrike(c.name, text) {
		return
	}

	msg := chat.Message{Ts: time.Now(), Author: c.name, Body: text}
	if err := s.dir.Enqueue(target, directory.CategoryPrivate, msg); err != nil {
		if errors.Is(err, directory.ErrUnknownUser) {
			s.respond(c.name, protocol.RespNoSuchUser)
			return
		}
		s.respond(c.name, protocol.RespBadRequest)
		return
	}

	metrics.MessagesTotal.WithLabelValues("private").Inc()
	s.events.PublishPrivateMessage(c.name, target)
	s.respond(c.name, protocol.RespPrivateSent)
}

func (s *Server) handleReadLast(c *Conn) {
	msgs := s.history.LastN(s.cfg.ReadLastCount)
	s.respond(c.name, protocol.JoinLines(chat.Lines(msgs)))
}

func (s *Server) handleReceive(c *Conn, category string) {
	msgs, err := s.dir.Drain(c.name, category)
	if err != nil {
		s.respond(c.name, protocol.RespBadRequest)
		return
	}
	if len(msgs) == 0 {
		s.respond(c.name, protocol.NoUnread(category))
		return
	}
	s.respond(c.name, protocol.JoinLines(chat.Lines(msgs)))
}

// blockAndStrike runs the content filter when moderation is enabled. A
// blocked message costs the sender a strike through the normal strike flow
// and is never delivered.
func (s *Server) blockAndStrike(name, text string) bool {
	if s.filter == nil {
		return false
	}
	res := s.filter.Check(text)
	if !res.Blocked {
		return false
	}

	log.Printf("server: message from %q blocked (%s)", name, res.Reason)
	metrics.MessagesTotal.WithLabelValues("blocked").Inc()
	s.events.PublishFlagged(name, res.Reason)

	banned, err := s.dir.PushStrike(name)
	if err == nil {
		metrics.StrikesTotal.Inc()
		if banned {
			metrics.BansTotal.Inc()
			s.events.PublishBan(name)
			log.Printf("server: user %q banned by content filter", name)
		}
	}

	s.respond(name, protocol.RespBlocked)
	return true
}
