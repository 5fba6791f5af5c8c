// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"bytes"
	"fmt"
	"net/http"
)

// Collector response sentinels.
const (
	SuccessBody     = "1"
	BadChecksumBody = "bad_checksum"
)

// Response is what the collector answered.
type Response struct {
	StatusCode int
	Body       []byte
}

// Outcome classifies one upload attempt.
type Outcome int

const (
	// Success: the collector accepted every record.
	Success Outcome = iota

	// InvalidCredentials: the API key was rejected (403).
	InvalidCredentials

	// Malformed: the collector cannot parse the batch (400). The batch
	// is dropped.
	Malformed

	// Transient: a checksum mismatch or server error (500). Retried on
	// the next trigger.
	Transient

	// TooLarge: the batch exceeds the collector's size limit (413).
	TooLarge

	// NetworkError: the request failed before a response arrived.
	NetworkError

	// Unexpected: any other response. Treated as transient.
	Unexpected
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case InvalidCredentials:
		return "invalid_credentials"
	case Malformed:
		return "malformed"
	case Transient:
		return "transient"
	case TooLarge:
		return "too_large"
	case NetworkError:
		return "network_error"
	case Unexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classify maps a collector answer to an Outcome. The success sentinel
// is checked before status codes.
func Classify(response Response, err error) Outcome {
	if err != nil {
		return NetworkError
	}
	body := bytes.TrimSpace(response.Body)
	switch {
	case string(body) == SuccessBody:
		return Success
	case response.StatusCode == http.StatusForbidden:
		return InvalidCredentials
	case response.StatusCode == http.StatusBadRequest:
		return Malformed
	case string(body) == BadChecksumBody, response.StatusCode == http.StatusInternalServerError:
		return Transient
	case response.StatusCode == http.StatusRequestEntityTooLarge:
		return TooLarge
	default:
		return Unexpected
	}
}
