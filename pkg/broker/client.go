package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tinyland-inc/parlor/pkg/bus"
	"github.com/tinyland-inc/parlor/pkg/rooms"
)

// ErrNotConnected is returned when a room operation is issued before
// Connect has ever been called. This is a caller bug, not an
// environmental fault, so it surfaces as a hard error instead of being
// buffered.
var ErrNotConnected = errors.New("broker: not connected, call Connect first")

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 2 * time.Second

	defaultHeartbeat = 5 * time.Second

	pendingTTL = 2 * time.Minute
	pendingCap = 1024

	inboundBuffer = 256
)

// Options configures a broker client.
type Options struct {
	BrokerURL string
	// ClientID identifies the MQTT session. Defaults to
	// "parlor-<agentID>-<random>" when empty.
	ClientID string
	AgentID  string
	Username string
	// AutoSubscribe controls whether the base topic set is subscribed on
	// every (re)connect.
	AutoSubscribe     bool
	HeartbeatInterval time.Duration
	Logger            *slog.Logger
}

type inboundMsg struct {
	topic   string
	payload []byte
}

// Client owns one MQTT session and is the single path every component
// uses to reach the broker. Publishing while the transport is down
// buffers into the outbox; the buffered entries replay in order on
// reconnect.
type Client struct {
	opts Options
	log  *slog.Logger

	// newClient is swapped in tests to fake the transport.
	newClient func(*mqtt.ClientOptions) mqtt.Client

	events  *bus.Events
	store   *rooms.Store
	outbox  *Outbox
	pending *PendingTracker
	router  *Router

	mu            sync.Mutex
	m             mqtt.Client
	connected     bool
	currentRoom   string
	heartbeatStop chan struct{}
	inbound       chan inboundMsg
	sessionDone   chan struct{}
}

// New constructs a client. The connection is not opened until Connect.
func New(opts Options) *Client {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeat
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "broker", "agent_id", opts.AgentID)

	events := bus.NewEvents()
	store := rooms.NewStore()
	pending := NewPendingTracker(pendingTTL, pendingCap)

	return &Client{
		opts:      opts,
		log:       logger,
		newClient: func(o *mqtt.ClientOptions) mqtt.Client { return mqtt.NewClient(o) },
		events:    events,
		store:     store,
		outbox:    NewOutbox(),
		pending:   pending,
		router:    NewRouter(opts.AgentID, events, store, pending, logger),
	}
}

// Events exposes the typed event feeds for the display/state layer.
func (c *Client) Events() *bus.Events { return c.events }

// Rooms exposes the local room projection store. Read-only for callers.
func (c *Client) Rooms() *rooms.Store { return c.store }

// IsConnected reports whether the transport session is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// CurrentRoom returns the room this client is a member of, or "".
func (c *Client) CurrentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRoom
}

// Connect opens a fresh transport session, tearing down any previous
// one first. The broker is given a last-will that publishes a retained
// offline status if the session dies uncleanly. The post-connect
// sequence (subscribe, presence, heartbeat, rejoin, outbox flush) runs
// on every successful connect and reconnect via the transport's
// OnConnect hook, which makes reconnection self-healing without any
// per-component retry logic.
func (c *Client) Connect() error {
	c.mu.Lock()
	c.teardownLocked()

	clientID := c.opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("parlor-%s-%s", c.opts.AgentID, uuid.NewString()[:8])
	}

	co := mqtt.NewClientOptions().
		AddBroker(c.opts.BrokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetBinaryWill(statusTopic(c.opts.AgentID), c.presencePayload("offline"), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) { c.onConnectionLost(err) }).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			c.events.Lifecycle.Publish(bus.LifecycleEvent{Kind: bus.LifecycleReconnecting})
		})

	m := c.newClient(co)
	c.m = m
	c.inbound = make(chan inboundMsg, inboundBuffer)
	c.sessionDone = make(chan struct{})
	go c.dispatch(c.inbound, c.sessionDone)
	c.mu.Unlock()

	c.log.Info("connecting", "broker_url", c.opts.BrokerURL, "client_id", clientID)

	t := m.Connect()
	if !t.WaitTimeout(connectTimeout) {
		err := fmt.Errorf("broker: connect to %s timed out", c.opts.BrokerURL)
		c.events.Lifecycle.Publish(bus.LifecycleEvent{Kind: bus.LifecycleError, Err: err})
		return err
	}
	if err := t.Error(); err != nil {
		wrapped := fmt.Errorf("broker: connect to %s: %w", c.opts.BrokerURL, err)
		c.events.Lifecycle.Publish(bus.LifecycleEvent{Kind: bus.LifecycleError, Err: wrapped})
		return wrapped
	}
	return nil
}

// Disconnect stops the heartbeat, best-effort publishes a retained
// offline status, closes the transport, and clears the outbox and room
// membership. Safe to call when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	m := c.m
	connected := c.connected
	c.m = nil
	c.connected = false
	c.currentRoom = ""
	hbStop := c.heartbeatStop
	c.heartbeatStop = nil
	done := c.sessionDone
	c.sessionDone = nil
	c.mu.Unlock()

	if hbStop != nil {
		close(hbStop)
	}
	if m != nil {
		if connected {
			t := m.Publish(statusTopic(c.opts.AgentID), 1, true, c.presencePayload("offline"))
			t.WaitTimeout(shutdownTimeout)
		}
		m.Disconnect(250)
	}
	if done != nil {
		close(done)
	}
	c.outbox.Clear()

	if m != nil {
		c.log.Info("disconnected")
		c.events.Lifecycle.Publish(bus.LifecycleEvent{Kind: bus.LifecycleClosed})
	}
}

// Close disconnects and stops the pending tracker's background sweeper.
// The client cannot be reconnected afterwards; safe to call more than
// once.
func (c *Client) Close() {
	c.Disconnect()
	c.pending.Close()
}

// Publish sends payload to topic, or buffers it in the outbox when the
// transport is down. It never blocks on network I/O. Calling it before
// Connect is a programming error and returns ErrNotConnected.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	c.mu.Lock()
	m, connected := c.m, c.connected
	c.mu.Unlock()

	if m == nil {
		return ErrNotConnected
	}
	if !connected {
		c.outbox.Enqueue(OutboxEntry{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
		c.log.Debug("buffered publish while disconnected", "topic", topic, "outbox_len", c.outbox.Len())
		return nil
	}

	t := m.Publish(topic, qos, retained, payload)
	go func() {
		t.Wait()
		if err := t.Error(); err != nil {
			c.log.Warn("publish failed", "topic", topic, "error", err)
		}
	}()
	return nil
}

// JoinRoom makes this client a member of roomID. A client belongs to at
// most one room: joining while a different room is active leaves that
// room first. Joining the current room again is a no-op.
func (c *Client) JoinRoom(roomID string) error {
	c.mu.Lock()
	m, cur := c.m, c.currentRoom
	c.mu.Unlock()

	if m == nil {
		return ErrNotConnected
	}
	if cur == roomID {
		return nil
	}
	if cur != "" {
		if err := c.Publish(leaveTopic(cur), c.controlPayload(), 1, false); err != nil {
			return err
		}
		c.mu.Lock()
		c.currentRoom = ""
		c.mu.Unlock()
	}
	if err := c.Publish(joinTopic(roomID), c.controlPayload(), 1, false); err != nil {
		return err
	}
	c.mu.Lock()
	c.currentRoom = roomID
	c.mu.Unlock()
	c.log.Info("joined room", "room_id", roomID)
	return nil
}

// LeaveRoom leaves the current room. No-op when no room is joined.
func (c *Client) LeaveRoom() error {
	c.mu.Lock()
	m, cur := c.m, c.currentRoom
	c.mu.Unlock()

	if m == nil {
		return ErrNotConnected
	}
	if cur == "" {
		return nil
	}
	if err := c.Publish(leaveTopic(cur), c.controlPayload(), 1, false); err != nil {
		return err
	}
	c.mu.Lock()
	c.currentRoom = ""
	c.mu.Unlock()
	c.log.Info("left room", "room_id", cur)
	return nil
}

type chatInPayload struct {
	RoomID       string `json:"roomId"`
	FromAgentID  string `json:"fromAgentId"`
	FromUsername string `json:"fromUsername"`
	Type         string `json:"type"`
	Msg          string `json:"msg"`
	Ts           int64  `json:"ts"`
}

// SendRoomMessage publishes a text chat message to a room under this
// client's identity.
func (c *Client) SendRoomMessage(roomID, text string) error {
	return c.Publish(chatInTopic(roomID), encode(chatInPayload{
		RoomID:       roomID,
		FromAgentID:  c.opts.AgentID,
		FromUsername: c.opts.Username,
		Type:         "text",
		Msg:          text,
		Ts:           time.Now().UnixMilli(),
	}), 1, false)
}

// RequestRoomHistory asks the backend for up to limit messages of a
// room's history before the given timestamp (0 = latest). The request ID
// is returned immediately; the response arrives later as a
// RoomHistoryEvent carrying the same ID.
func (c *Client) RequestRoomHistory(roomID string, limit int, before int64) (string, error) {
	id := c.newRequestID()
	err := c.Publish(roomHistoryRequestTopic(roomID), encode(struct {
		RequestID string `json:"requestId"`
		Limit     int    `json:"limit"`
		Before    int64  `json:"before"`
	}{id, limit, before}), 1, false)
	if err != nil {
		return "", err
	}
	c.pending.Add(id)
	return id, nil
}

// RequestSenderHistory asks for messages a given sender produced across
// rooms. Resolution mirrors RequestRoomHistory.
func (c *Client) RequestSenderHistory(senderType, senderID string, limit int, before int64) (string, error) {
	id := c.newRequestID()
	err := c.Publish(senderHistoryRequestTopic, encode(struct {
		RequestID  string `json:"requestId"`
		SenderType string `json:"senderType"`
		SenderID   string `json:"senderId"`
		Limit      int    `json:"limit"`
		Before     int64  `json:"before"`
	}{id, senderType, senderID, limit, before}), 1, false)
	if err != nil {
		return "", err
	}
	c.pending.Add(id)
	return id, nil
}

// RequestMemoryFind runs a text search over this agent's long-term
// memory on the backend.
func (c *Client) RequestMemoryFind(query string) (string, error) {
	id := c.newRequestID()
	err := c.Publish(memoryFindRequestTopic(c.opts.AgentID), encode(struct {
		RequestID string `json:"requestId"`
		TextQuery string `json:"textQuery"`
	}{id, query}), 1, false)
	if err != nil {
		return "", err
	}
	c.pending.Add(id)
	return id, nil
}

// onConnect runs on every successful connect and reconnect.
func (c *Client) onConnect(m mqtt.Client) {
	c.mu.Lock()
	if m != c.m {
		// Callback from a superseded session.
		c.mu.Unlock()
		return
	}
	c.connected = true
	room := c.currentRoom
	inbound, done := c.inbound, c.sessionDone
	c.mu.Unlock()

	c.log.Info("connected")

	if c.opts.AutoSubscribe {
		c.subscribeAll(m, inbound, done)
	}

	t := m.Publish(statusTopic(c.opts.AgentID), 1, true, c.presencePayload("online"))
	t.WaitTimeout(shutdownTimeout)

	c.startHeartbeat()

	if room != "" {
		m.Publish(joinTopic(room), 1, false, c.controlPayload())
	}

	for _, e := range c.outbox.Drain() {
		m.Publish(e.Topic, e.QoS, e.Retained, e.Payload)
	}

	c.events.Lifecycle.Publish(bus.LifecycleEvent{Kind: bus.LifecycleConnected})
}

func (c *Client) onConnectionLost(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.log.Warn("connection lost", "error", err)
	c.events.Lifecycle.Publish(bus.LifecycleEvent{Kind: bus.LifecycleError, Err: err})
}

func (c *Client) subscribeAll(m mqtt.Client, inbound chan<- inboundMsg, done <-chan struct{}) {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case inbound <- inboundMsg{topic: msg.Topic(), payload: msg.Payload()}:
		case <-done:
		}
	}
	for _, filter := range subscriptionTopics(c.opts.AgentID) {
		if t := m.Subscribe(filter, 1, handler); t != nil {
			go func(filter string, t mqtt.Token) {
				t.Wait()
				if err := t.Error(); err != nil {
					c.log.Warn("subscribe failed", "filter", filter, "error", err)
				}
			}(filter, t)
		}
	}
}

// dispatch is the single event loop: every inbound broker message is
// routed from here, one at a time, for the lifetime of one session.
func (c *Client) dispatch(inbound <-chan inboundMsg, done <-chan struct{}) {
	for {
		select {
		case msg := <-inbound:
			c.router.Handle(msg.topic, msg.payload)
		case <-done:
			return
		}
	}
}

// startHeartbeat (re)starts the liveness ticker. Any previous ticker is
// stopped first so repeated connects never stack timers.
func (c *Client) startHeartbeat() {
	c.mu.Lock()
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
	}
	stop := make(chan struct{})
	c.heartbeatStop = stop
	interval := c.opts.HeartbeatInterval
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				m, connected := c.m, c.connected
				c.mu.Unlock()
				if m == nil || !connected {
					continue
				}
				m.Publish(heartbeatTopic(c.opts.AgentID), 0, false, encode(struct {
					AgentID  string `json:"agentId"`
					Username string `json:"username"`
					Ts       int64  `json:"ts"`
				}{c.opts.AgentID, c.opts.Username, time.Now().UnixMilli()}))
			case <-stop:
				return
			}
		}
	}()
}

// teardownLocked silently discards the current session. Caller holds mu.
func (c *Client) teardownLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	if c.m != nil {
		c.m.Disconnect(250)
		c.m = nil
	}
	if c.sessionDone != nil {
		close(c.sessionDone)
		c.sessionDone = nil
	}
	c.connected = false
}

func (c *Client) presencePayload(status string) []byte {
	return encode(struct {
		Status   string `json:"status"`
		AgentID  string `json:"agentId"`
		Username string `json:"username"`
		Ts       int64  `json:"ts"`
	}{status, c.opts.AgentID, c.opts.Username, time.Now().UnixMilli()})
}

func (c *Client) controlPayload() []byte {
	return encode(struct {
		AgentID  string `json:"agentId"`
		Username string `json:"username"`
		Ts       int64  `json:"ts"`
	}{c.opts.AgentID, c.opts.Username, time.Now().UnixMilli()})
}

func (c *Client) newRequestID() string {
	return c.opts.AgentID + "-" + uuid.NewString()
}

// encode marshals structs whose shapes are fixed at compile time; a
// failure here would be a programming error.
func encode(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
