// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/web_compass/internal/compass"
	"github.com/relabs-tech/web_compass/internal/config"
	"github.com/relabs-tech/web_compass/internal/gps"
	"github.com/relabs-tech/web_compass/internal/motion"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

// Server serves the compass page, one websocket session per browser and a
// JSON API over the hardware session fed from MQTT.
type Server struct {
	cfg *config.Config
	clk clock.Clock

	// publish sends hardware readings out, e.g. to MQTT. May be nil.
	publish func(compass.Reading)

	mu          sync.RWMutex
	lastReading compass.Reading
	haveReading bool
	lastFix     gps.Fix
	haveFix     bool
	followers   map[*wsClient]struct{}

	hardware *compass.Runner
}

// NewServer builds the server and its hardware session. Call Run to start
// the hardware session before feeding it samples.
func NewServer(cfg *config.Config, clk clock.Clock, publish func(compass.Reading)) *Server {
	if clk == nil {
		clk = clock.New()
	}
	s := &Server{
		cfg:       cfg,
		clk:       clk,
		publish:   publish,
		followers: make(map[*wsClient]struct{}),
	}
	session := compass.NewSession(sessionConfig(cfg), clk, hardwareDisplay{s})
	s.hardware = compass.NewRunner(session, clk)
	return s
}

// Run drives the hardware session until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.hardware.Run(ctx) }()

	var startErr error
	if err := s.hardware.Do(ctx, func(sess *compass.Session) {
		startErr = sess.Start(ctx, true, nil)
	}); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}
	return <-errCh
}

// HardwareOrientation feeds an orientation sample from the sensor producer.
func (s *Server) HardwareOrientation(ctx context.Context, o orientation.Sample) error {
	return s.hardware.Orientation(ctx, o)
}

// HardwareMotion feeds a motion sample from the sensor producer.
func (s *Server) HardwareMotion(ctx context.Context, m motion.Sample) error {
	return s.hardware.Motion(ctx, m)
}

// RecalibrateHardware opens a new calibration window on the hardware session.
func (s *Server) RecalibrateHardware(ctx context.Context) error {
	return s.hardware.Do(ctx, func(sess *compass.Session) { sess.Recalibrate() })
}

// SetFix records the latest GPS fix and forwards it to followers.
func (s *Server) SetFix(f gps.Fix) {
	s.mu.Lock()
	s.lastFix, s.haveFix = f, true
	s.mu.Unlock()
	s.broadcast(WSResponse{Type: "position", Fix: &f})
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleCompassWS)

	// JSON API endpoint: latest hardware heading
	mux.HandleFunc("/api/heading", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		reading, ok := s.lastReading, s.haveReading
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, reading)
	})

	// JSON API endpoint: latest GPS fix
	mux.HandleFunc("/api/gps", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		fix, ok := s.lastFix, s.haveFix
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, fix)
	})

	mux.HandleFunc("/api/recalibrate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.RecalibrateHardware(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	// Static files as the root
	mux.Handle("/", http.FileServer(http.Dir(s.cfg.WebStaticDir)))
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (s *Server) addFollower(c *wsClient) {
	s.mu.Lock()
	s.followers[c] = struct{}{}
	reading, ok := s.lastReading, s.haveReading
	s.mu.Unlock()
	if ok {
		c.send(WSResponse{Type: "reading", Reading: &reading})
	}
}

func (s *Server) removeFollower(c *wsClient) {
	s.mu.Lock()
	delete(s.followers, c)
	s.mu.Unlock()
}

func (s *Server) broadcast(resp WSResponse) {
	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.followers))
	for c := range s.followers {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(resp); err != nil {
			log.Printf("web: dropping follower: %v", err)
			s.removeFollower(c)
		}
	}
}

// hardwareDisplay stores, publishes and fans out hardware readings.
type hardwareDisplay struct {
	s *Server
}

func (d hardwareDisplay) Render(r compass.Reading) {
	d.s.mu.Lock()
	d.s.lastReading, d.s.haveReading = r, true
	d.s.mu.Unlock()

	if d.s.publish != nil {
		d.s.publish(r)
	}
	d.s.broadcast(WSResponse{Type: "reading", Reading: &r})
}

func (d hardwareDisplay) ShowMessage(msg string) {
	d.s.broadcast(messageResponse(msg))
}

// RunWeb connects to MQTT, feeds the hardware session from the sensor
// topics and serves HTTP until ctx is cancelled.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	// 1) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	srv := NewServer(cfg, clock.New(), func(r compass.Reading) {
		if err := publishJSON(client, cfg.TopicHeading, r); err != nil {
			log.Printf("web: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	// 2) Subscribe to sensor topics and GPS
	if err := subscribeJSON(client, cfg.TopicOrientation, "web", func(o orientation.Sample) {
		if err := srv.HardwareOrientation(ctx, o); err != nil && ctx.Err() == nil {
			log.Printf("web: orientation: %v", err)
		}
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicMotion, "web", func(m motion.Sample) {
		if err := srv.HardwareMotion(ctx, m); err != nil && ctx.Err() == nil {
			log.Printf("web: motion: %v", err)
		}
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGPS, "web", srv.SetFix); err != nil {
		return err
	}

	// 3) HTTP
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
