// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bureau-foundation/eventq/lib/netutil"
	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/version"
)

// DefaultTimeout bounds one upload request.
const DefaultTimeout = 30 * time.Second

// Batch is one upload request. Records have their local ids removed.
type Batch struct {
	Stream     record.Stream
	Records    []record.Payload
	UserID     string
	UploadTime int64
}

// Sender delivers a batch to the collector. A non-nil error means no
// response was received.
type Sender interface {
	Send(ctx context.Context, batch Batch) (Response, error)
}

// API is the account metadata carried by every batch.
type API struct {
	APIKey     string          `json:"api_key"`
	Library    version.Library `json:"library"`
	UploadTime int64           `json:"upload_time"`
}

// Envelope is the JSON request body. Events is set for event batches,
// Data and ID for identify batches.
type Envelope struct {
	API    API              `json:"api"`
	Events []record.Payload `json:"events,omitempty"`
	Data   []record.Payload `json:"data,omitempty"`
	ID     *string          `json:"id,omitempty"`
}

// NewEnvelope builds the request body for batch.
func NewEnvelope(apiKey string, batch Batch) Envelope {
	envelope := Envelope{
		API: API{
			APIKey:     apiKey,
			Library:    version.Current(),
			UploadTime: batch.UploadTime,
		},
	}
	records := batch.Records
	if batch.Stream == record.Identifies {
		envelope.Data = records
		if batch.UserID != "" {
			userID := batch.UserID
			envelope.ID = &userID
		}
	} else {
		envelope.Events = records
	}
	return envelope
}

// HTTPSenderConfig configures an HTTPSender.
type HTTPSenderConfig struct {
	// BaseURL is the collector root; endpoints are resolved below it.
	// Required.
	BaseURL string

	// APIKey identifies the project. Required.
	APIKey string

	// Client defaults to an http.Client with Timeout.
	Client *http.Client

	// Timeout defaults to DefaultTimeout. Ignored when Client is set.
	Timeout time.Duration

	Compression Compression

	// Checksum adds ChecksumHeader to every request.
	Checksum bool
}

// HTTPSender posts batches to the collector over HTTP.
type HTTPSender struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	compression Compression
	checksum    bool
}

// NewHTTPSender validates config and returns a sender.
func NewHTTPSender(config HTTPSenderConfig) (*HTTPSender, error) {
	if config.BaseURL == "" {
		return nil, errors.New("upload: base URL is required")
	}
	if config.APIKey == "" {
		return nil, errors.New("upload: API key is required")
	}
	if _, err := ParseCompression(string(config.Compression)); err != nil {
		return nil, err
	}
	client := config.Client
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSender{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		apiKey:      config.APIKey,
		client:      client,
		compression: config.Compression,
		checksum:    config.Checksum,
	}, nil
}

// Send posts batch to the endpoint of its stream.
func (s *HTTPSender) Send(ctx context.Context, batch Batch) (Response, error) {
	body, err := json.Marshal(NewEnvelope(s.apiKey, batch))
	if err != nil {
		return Response{}, fmt.Errorf("upload: encoding %s batch: %w", batch.Stream, err)
	}
	encoded, err := Encode(body, s.compression)
	if err != nil {
		return Response{}, err
	}

	url := s.baseURL + "/" + batch.Stream.Endpoint()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return Response{}, fmt.Errorf("upload: creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", version.LibraryName+"/"+version.Short())
	if s.compression != CompressionNone {
		request.Header.Set("Content-Encoding", string(s.compression))
	}
	if s.checksum {
		request.Header.Set(ChecksumHeader, Checksum(body))
	}

	response, err := s.client.Do(request)
	if err != nil {
		if netutil.IsTimeout(err) {
			return Response{}, fmt.Errorf("upload: POST %s timed out: %w", url, err)
		}
		return Response{}, fmt.Errorf("upload: POST %s: %w", url, err)
	}
	defer response.Body.Close()

	data, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return Response{}, fmt.Errorf("upload: reading response from %s: %w", url, err)
	}
	return Response{StatusCode: response.StatusCode, Body: data}, nil
}
