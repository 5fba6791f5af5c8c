// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bureau-foundation/eventq/lib/netutil"
	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/upload"
)

// DefaultMaxBodySize bounds a batch, compressed or not.
const DefaultMaxBodySize = 1 << 20

const shutdownTimeout = 5 * time.Second

// Config configures a Server.
type Config struct {
	// APIKeys are the accepted keys. Required.
	APIKeys []string

	// MaxBodySize defaults to DefaultMaxBodySize.
	MaxBodySize int64

	// Sink receives accepted batches. Required.
	Sink Sink

	Logger *slog.Logger
}

// Server is the collector HTTP server.
type Server struct {
	keys        map[string]bool
	maxBodySize int64
	sink        Sink
	logger      *slog.Logger
	engine      *gin.Engine
}

// New validates config and builds the router.
func New(config Config) (*Server, error) {
	if len(config.APIKeys) == 0 {
		return nil, errors.New("collector: at least one API key is required")
	}
	if config.Sink == nil {
		return nil, errors.New("collector: sink is required")
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	keys := make(map[string]bool, len(config.APIKeys))
	for _, key := range config.APIKeys {
		if key != "" {
			keys[key] = true
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("collector: API keys are all empty")
	}

	s := &Server{
		keys:        keys,
		maxBodySize: config.MaxBodySize,
		sink:        config.Sink,
		logger:      logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	for _, stream := range record.Streams {
		engine.POST("/"+stream.Endpoint(), s.batchHandler(stream))
	}
	s.engine = engine
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("collector: listening on %s: %w", address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("collector listening", "address", listener.Addr().String())
	err := server.Serve(listener)
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("collector: serving: %w", err)
	}
	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("collector: shutting down: %w", err)
	}
	return nil
}

func (s *Server) batchHandler(stream record.Stream) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := netutil.ReadLimited(c.Request.Body, s.maxBodySize)
		if errors.Is(err, netutil.ErrTooLarge) {
			s.reject(c, stream, http.StatusRequestEntityTooLarge, "batch too large", err)
			return
		}
		if err != nil {
			s.reject(c, stream, http.StatusBadRequest, "unreadable body", err)
			return
		}

		compression, err := upload.ParseCompression(c.GetHeader("Content-Encoding"))
		if err != nil {
			s.reject(c, stream, http.StatusBadRequest, "unsupported content encoding", err)
			return
		}
		decoded, err := upload.Decode(body, compression, s.maxBodySize)
		if errors.Is(err, upload.ErrBodyTooLarge) {
			s.reject(c, stream, http.StatusRequestEntityTooLarge, "batch too large", err)
			return
		}
		if err != nil {
			s.reject(c, stream, http.StatusBadRequest, "undecodable body", err)
			return
		}

		if digest := c.GetHeader(upload.ChecksumHeader); digest != "" && !upload.VerifyChecksum(decoded, digest) {
			s.logger.Warn("collector: checksum mismatch", "stream", stream.String())
			c.String(http.StatusUnprocessableEntity, upload.BadChecksumBody)
			return
		}

		var envelope upload.Envelope
		if err := json.Unmarshal(decoded, &envelope); err != nil {
			s.reject(c, stream, http.StatusBadRequest, "invalid JSON", err)
			return
		}
		if !s.keys[envelope.API.APIKey] {
			s.reject(c, stream, http.StatusForbidden, "invalid API key", nil)
			return
		}

		batch, err := batchFromEnvelope(stream, envelope)
		if err != nil {
			s.reject(c, stream, http.StatusBadRequest, err.Error(), nil)
			return
		}
		if err := s.sink.Accept(c.Request.Context(), batch); err != nil {
			s.logger.Error("collector: sink failed", "stream", stream.String(), "records", len(batch.Records), "error", err)
			c.String(http.StatusInternalServerError, "sink failed")
			return
		}
		c.String(http.StatusOK, upload.SuccessBody)
	}
}

// batchFromEnvelope checks the envelope shape for stream.
func batchFromEnvelope(stream record.Stream, envelope upload.Envelope) (Batch, error) {
	batch := Batch{
		Stream:     stream,
		APIKey:     envelope.API.APIKey,
		Library:    envelope.API.Library,
		UploadTime: envelope.API.UploadTime,
	}
	switch stream {
	case record.Identifies:
		batch.Records = envelope.Data
		if envelope.ID != nil {
			batch.UserID = *envelope.ID
		}
	default:
		batch.Records = envelope.Events
	}
	if len(batch.Records) == 0 {
		return Batch{}, fmt.Errorf("no records under %q", stream.EnvelopeKey())
	}
	for i, payload := range batch.Records {
		if payload == nil {
			return Batch{}, fmt.Errorf("record %d is null", i)
		}
		if stream != record.Events {
			continue
		}
		if name, ok := payload.String(record.FieldCollection); !ok || name == "" {
			return Batch{}, fmt.Errorf("record %d has no collection", i)
		}
	}
	return batch, nil
}

func (s *Server) reject(c *gin.Context, stream record.Stream, status int, reason string, err error) {
	attrs := []any{"stream", stream.String(), "status", status, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Warn("collector: batch rejected", attrs...)
	c.JSON(status, gin.H{"error": reason})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("collector request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
