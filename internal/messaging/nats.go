// Package messaging publishes chat and moderation events to NATS so that
// out-of-process consumers (the moderator daemon, ad-hoc tooling) can observe
// the server without touching its state. Publishing is strictly
// fire-and-forget: a nil client or a NATS outage never affects request
// handling.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects used by chatd.
const (
	SubjectChatMessage    = "chat.message"
	SubjectPrivateMessage = "chat.private"
	SubjectStrike         = "moderation.strike"
	SubjectBan            = "moderation.ban"
	SubjectFlagged        = "moderation.flagged"

	// SubjectModerationAll matches every moderation event.
	SubjectModerationAll = "moderation.*"
)

// Event kinds carried in the payload, mirroring the subject tails.
const (
	KindChatMessage    = "message"
	KindPrivateMessage = "private"
	KindStrike         = "strike"
	KindBan            = "ban"
	KindFlagged        = "flagged"
)

// Event is the JSON payload published on every subject.
type Event struct {
	Kind   string `json:"kind"`
	User   string `json:"user"`             // acting user
	Target string `json:"target,omitempty"` // addressee for private/strike events
	Body   string `json:"body,omitempty"`   // message text, where applicable
	Ts     int64  `json:"ts"`               // unix timestamp
}

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "chatd",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Client wraps the NATS connection with typed publish helpers and a
// subscription registry for clean shutdown.
type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// Connect dials NATS with the given config. It returns an error if the
// initial connection fails; reconnects afterwards are handled by the client.
func Connect(config Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &Client{conn: nc, subs: make(map[string]*nats.Subscription)}, nil
}

// publish marshals the event and sends it on subject. A nil client is a
// no-op so callers never need to guard event publishing.
func (c *Client) publish(subject string, ev Event) {
	if c == nil {
		return
	}
	if ev.Ts == 0 {
		ev.Ts = time.Now().Unix()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[nats] marshal event %s: %v", subject, err)
		return
	}
	if err := c.conn.Publish(subject, data); err != nil {
		log.Printf("[nats] publish %s: %v", subject, err)
	}
}

// PublishChatMessage announces a common-chat post.
func (c *Client) PublishChatMessage(user, body string) {
	c.publish(SubjectChatMessage, Event{Kind: KindChatMessage, User: user, Body: body})
}

// PublishPrivateMessage announces a private message. The body is not carried;
// private content stays between the users.
func (c *Client) PublishPrivateMessage(user, target string) {
	c.publish(SubjectPrivateMessage, Event{Kind: KindPrivateMessage, User: user, Target: target})
}

// PublishStrike announces a strike pushed by user against target.
func (c *Client) PublishStrike(user, target string) {
	c.publish(SubjectStrike, Event{Kind: KindStrike, User: user, Target: target})
}

// PublishFlagged announces that the content filter blocked a message from
// user. The reason is the filter's machine-readable verdict, not the text.
func (c *Client) PublishFlagged(user, reason string) {
	c.publish(SubjectFlagged, Event{Kind: KindFlagged, User: user, Body: reason})
}

// PublishBan announces that target crossed the strike limit and was banned.
func (c *Client) PublishBan(target string) {
	c.publish(SubjectBan, Event{Kind: KindBan, Target: target})
}

// Subscribe registers a handler for the given subject (wildcards allowed) and
// stores the subscription for cleanup on Close.
func (c *Client) Subscribe(subject string, handler func(ev Event)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[nats] unmarshal event on %s: %v", msg.Subject, err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()
	return nil
}

// Close drains all active subscriptions and the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}
