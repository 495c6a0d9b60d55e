// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/web_compass/internal/compass"
	"github.com/relabs-tech/web_compass/internal/gps"
	"github.com/relabs-tech/web_compass/internal/motion"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is what the browser sends.
type WSMessage struct {
	// start, orientation, motion, position, recalibrate, follow
	Action string `json:"action"`

	// start: whether DeviceOrientationEvent exists and how the permission
	// prompt went: granted, denied, error, or empty when none is needed
	Supported  bool   `json:"supported,omitempty"`
	Permission string `json:"permission,omitempty"`
	Detail     string `json:"detail,omitempty"`

	Orientation *orientation.Sample `json:"orientation,omitempty"`
	Motion      *motion.Sample      `json:"motion,omitempty"`
	TimestampMs float64             `json:"timestamp_ms,omitempty"` // event.timeStamp

	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

// WSResponse is what the server sends: reading, message, position, error.
type WSResponse struct {
	Type    string           `json:"type"`
	Reading *compass.Reading `json:"reading,omitempty"`
	Message *string          `json:"message,omitempty"` // set on every "message", even when empty
	Fix     *gps.Fix         `json:"fix,omitempty"`
	Lat     string           `json:"lat,omitempty"`
	Lon     string           `json:"lon,omitempty"`
}

// wsClient serializes writes to one connection. It is also the display of
// the browser's own session.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(resp WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(resp)
}

func (c *wsClient) Render(r compass.Reading) {
	if err := c.send(WSResponse{Type: "reading", Reading: &r}); err != nil {
		log.Printf("compass: websocket write error: %v", err)
	}
}

// ShowMessage always sends, so an empty message clears the banner.
func (c *wsClient) ShowMessage(msg string) {
	if err := c.send(messageResponse(msg)); err != nil {
		log.Printf("compass: websocket write error: %v", err)
	}
}

func messageResponse(msg string) WSResponse {
	return WSResponse{Type: "message", Message: &msg}
}

// browserGate replays the outcome of the browser's permission prompt.
func browserGate(msg WSMessage) compass.PermissionGate {
	switch msg.Permission {
	case "":
		return nil
	case "granted":
		return compass.PermissionFunc(func(context.Context) (bool, error) { return true, nil })
	case "error":
		detail := msg.Detail
		if detail == "" {
			detail = "permission request failed"
		}
		return compass.PermissionFunc(func(context.Context) (bool, error) { return false, errors.New(detail) })
	default:
		return compass.PermissionFunc(func(context.Context) (bool, error) { return false, nil })
	}
}

// browserTime maps event.timeStamp (ms since page load) onto a time.Time.
// Only differences matter to the integrator.
func browserTime(ms float64) time.Time {
	return time.Unix(0, 0).Add(time.Duration(ms * float64(time.Millisecond)))
}

// HandleCompassWS runs one compass session for the connected browser.
func (s *Server) HandleCompassWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("compass: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &wsClient{conn: conn}
	session := compass.NewSession(sessionConfig(s.cfg), s.clk, client)
	runner := compass.NewRunner(session, s.clk)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go runner.Run(ctx)
	defer s.removeFollower(client)

	log.Printf("compass: session %s connected from %s", session.ID(), r.RemoteAddr)

	// Main message loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("compass: websocket read error: %v", err)
			}
			break
		}
		if err := s.dispatch(ctx, client, runner, msg); err != nil {
			log.Printf("compass: session %s: %v", session.ID(), err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	log.Printf("compass: session %s closed", session.ID())
}

func (s *Server) dispatch(ctx context.Context, client *wsClient, runner *compass.Runner, msg WSMessage) error {
	switch msg.Action {
	case "start":
		var startErr error
		gate := browserGate(msg)
		if err := runner.Do(ctx, func(sess *compass.Session) {
			startErr = sess.Start(ctx, msg.Supported, gate)
		}); err != nil {
			return err
		}
		return startErr

	case "orientation":
		if msg.Orientation == nil {
			return errors.New("orientation message without orientation")
		}
		return runner.Orientation(ctx, *msg.Orientation)

	case "motion":
		if msg.Motion == nil {
			return errors.New("motion message without motion")
		}
		m := *msg.Motion
		if msg.TimestampMs > 0 {
			m.Time = browserTime(msg.TimestampMs)
		}
		return runner.Motion(ctx, m)

	case "position":
		if msg.Lat == nil || msg.Lon == nil {
			return errors.New("position message without coordinates")
		}
		fix := gps.FromBrowser(*msg.Lat, *msg.Lon)
		lat, lon := fix.Coordinates()
		return client.send(WSResponse{Type: "position", Fix: &fix, Lat: lat, Lon: lon})

	case "recalibrate":
		return runner.Do(ctx, func(sess *compass.Session) { sess.Recalibrate() })

	case "follow":
		s.addFollower(client)
		return nil

	default:
		return errors.New("unknown action " + msg.Action)
	}
}
