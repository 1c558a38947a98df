package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"navigate-map/internal/location"
	"navigate-map/internal/navigation"
	"navigate-map/internal/routing"
)

const (
	// sendChannelSize controls the max number
	// of messages that can be queued for a client.
	sendChannelSize = 16
	// eventQueueSize bounds the session events waiting on the loop.
	eventQueueSize = 32
	pingPeriod     = (60 * 9 * time.Second) / 10
	detachTimeout  = 5 * time.Second
)

// Client is one connected surface together with the navigation session it
// drives. Every session call runs on the client's loop.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Manager *Manager
	send    chan Message
	ctx     context.Context
	cancel  context.CancelFunc

	loop    *navigation.Loop
	feed    *location.Feed
	engine  *routing.Engine
	session *navigation.Session

	closeOnce sync.Once
}

var _ navigation.Surface = (*Client)(nil)

func NewClient(id string, variant navigation.Variant, conn *websocket.Conn, manager *Manager) (*Client, error) {
	ctx, cancel := context.WithCancel(manager.ctx)
	logger := manager.logger.With("clientID", id)

	c := &Client{
		ID:      id,
		Conn:    conn,
		Manager: manager,
		send:    make(chan Message, sendChannelSize),
		ctx:     ctx,
		cancel:  cancel,
		loop:    navigation.NewLoop(eventQueueSize),
		feed:    location.NewFeed(id, manager.store, logger),
		engine:  routing.NewEngine(manager.planner, logger, manager.engineOptions),
	}

	session, err := navigation.NewSession(navigation.Options{
		Variant:       variant,
		Location:      c.feed,
		Engine:        c.engine,
		Surface:       c,
		Formatter:     manager.formatter,
		Dispatcher:    c.loop,
		Logger:        logger,
		RetryInterval: manager.retryInterval,
		MapArea:       manager.mapArea,
		CautionArea:   manager.cautionArea,
	})
	if err != nil {
		cancel()
		c.engine.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	c.session = session
	return c, nil
}

func (c *Client) Start() {
	if err := c.feed.Prime(c.ctx); err != nil {
		c.Manager.logger.Warn("failed to prime location feed", "clientID", c.ID, "error", err)
	}
	go c.loop.Run(c.ctx)
	c.Manager.Register(c)
	c.loop.Post(c.session.Attach)
	go c.readPump()
	go c.writePump()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if err := c.Conn.Close(websocket.StatusNormalClosure, "bye :P"); err != nil {
			c.Manager.logger.Debug("failed to close connection", "clientID", c.ID, "error", err)
		}
		c.cancel()
	})
}

// Send queues msg without blocking. A client that cannot keep up is
// disconnected.
func (c *Client) Send(msg Message) {
	select {
	case c.send <- msg:
	default:
		c.Manager.logger.Warn("send queue full, disconnecting", "clientID", c.ID)
		go c.Manager.forceDisconnect(c)
	}
}

func (c *Client) sendPayload(msgType string, data any) {
	msg, err := newMessage(msgType, data)
	if err != nil {
		c.Manager.logger.Error("failed to marshal message", "clientID", c.ID, "type", msgType, "error", err)
		return
	}
	c.Send(msg)
}

func (c *Client) Render(view navigation.View) {
	c.sendPayload(TypeView, view)
}

func (c *Client) Advise(message string) {
	c.sendPayload(TypeAdvisory, AdvisoryPayload{Message: message})
}

func (c *Client) Center(p navigation.GeoPoint) {
	c.sendPayload(TypeCenter, PointPayload{Lat: p.Lat, Lon: p.Lon})
}

// Publish feeds a position fix into the client's session.
func (c *Client) Publish(ctx context.Context, fix navigation.Fix) error {
	return c.feed.Publish(ctx, fix)
}

func (c *Client) readPump() {
	defer func() {
		c.detach()
		c.Manager.Unregister(c)
		c.Close()
		c.engine.Close()
	}()

	for {
		var msg Message
		if err := wsjson.Read(c.ctx, c.Conn, &msg); err != nil {
			c.Manager.logger.Debug("failed to read message", "clientID", c.ID, "error", err)
			break
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := wsjson.Write(c.ctx, c.Conn, msg); err != nil {
				c.Manager.logger.Warn("failed to write message", "clientID", c.ID, "error", err)
				return
			}
			c.Manager.logger.Debug("message sent", "clientID", c.ID, "type", msg.Type)
		case <-ticker.C:
			if err := c.Conn.Ping(c.ctx); err != nil {
				c.Manager.logger.Debug("failed to ping client", "clientID", c.ID, "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// detach releases the session's subscriptions on the loop, if it still runs.
func (c *Client) detach() {
	ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
	defer cancel()
	if err := c.loop.Do(ctx, c.session.Detach); err != nil && !errors.Is(err, navigation.ErrLoopStopped) {
		c.Manager.logger.Warn("failed to detach session", "clientID", c.ID, "error", err)
	}
}

func (c *Client) handleMessage(msg Message) {
	c.Manager.logger.Debug("received message", "clientID", c.ID, "type", msg.Type)

	switch msg.Type {
	case TypePick:
		var p PointPayload
		if !c.decode(msg, &p) {
			return
		}
		c.post(msg.Type, func() error { return c.session.PickPoint(p.GeoPoint()) })
	case TypeClear:
		c.post(msg.Type, c.session.ClearPoints)
	case TypeStart:
		c.post(msg.Type, c.session.StartNavigation)
	case TypeStop:
		c.post(msg.Type, func() error {
			c.session.StopNavigation()
			return nil
		})
	case TypeStartStop:
		c.post(msg.Type, c.session.ToggleNavigation)
	case TypeMode:
		var m ModePayload
		if !c.decode(msg, &m) {
			return
		}
		c.post(msg.Type, func() error { return c.session.SelectMode(m.Mode) })
	case TypeFollow:
		c.post(msg.Type, func() error {
			c.session.ToggleFollow()
			return nil
		})
	case TypeCamera:
		var cam CameraPayload
		if !c.decode(msg, &cam) {
			return
		}
		switch cam.View {
		case CameraFollow:
			c.post(msg.Type, c.session.FollowCamera)
		case CameraOverview:
			c.post(msg.Type, c.session.OverviewCamera)
		default:
			c.Manager.logger.Warn("unknown camera view", "clientID", c.ID, "view", cam.View)
		}
	case TypePosition:
		var pos PositionPayload
		if !c.decode(msg, &pos) {
			return
		}
		if err := c.feed.Publish(c.ctx, pos.Fix()); err != nil {
			c.Manager.logger.Warn("failed to publish position", "clientID", c.ID, "error", err)
		}
	default:
		c.Manager.logger.Debug("received unknown type message", "clientID", c.ID, "type", msg.Type)
	}
}

func (c *Client) decode(msg Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.Manager.logger.Warn("failed to unmarshal message", "clientID", c.ID, "type", msg.Type, "error", err)
		return false
	}
	return true
}

// post runs op on the loop. Rejections have already been advised to the
// surface by the session.
func (c *Client) post(msgType string, op func() error) {
	c.loop.Post(func() {
		if err := op(); err != nil {
			c.Manager.logger.Debug("session operation rejected", "clientID", c.ID, "type", msgType, "error", err)
		}
	})
}
