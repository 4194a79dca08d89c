// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package message defines the plaintext payload shapes carried inside a
// MessageEnvelope once decrypted: the gladys-event shape the instance
// pushes to users, and the gladys-api-call/response shape RequestRouter
// uses to tunnel REST-like calls over the socket.
//
// This client dispatches inbound frames serially per session rather
// than tracking sequence numbers, so the original sequence/nonce
// replay-protection header this package once carried has no home here
// and was dropped rather than carried over unused.
package message

// EventPayload is what an instance sends a user device for a fire-and-
// forget event notification.
type EventPayload struct {
	Version string `json:"version"`
	Type    string `json:"type"`
	Event   string `json:"event"`
	Data    any    `json:"data"`
}

// NewEvent builds an EventPayload with the fixed envelope shape the
// instance always uses for events.
func NewEvent(event string, data any) EventPayload {
	return EventPayload{Version: "1.0", Type: "gladys-event", Event: event, Data: data}
}

// APICallOptions describes the REST call an API-over-E2EE request
// tunnels: GET requests carry their body as Query, every other method
// carries it as Data.
type APICallOptions struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Data   any    `json:"data,omitempty"`
	Query  any    `json:"query,omitempty"`
}

// APICallPayload is the plaintext RequestRouter encrypts and sends to
// an instance for sendRequestToInstance.
type APICallPayload struct {
	Version string         `json:"version"`
	Type    string         `json:"type"`
	Options APICallOptions `json:"options"`
}

// NewAPICall builds an APICallPayload, routing body to Query for GET
// and to Data for every other method.
func NewAPICall(method, url string, body any) APICallPayload {
	opts := APICallOptions{URL: url, Method: method}
	if method == "GET" {
		opts.Query = body
	} else {
		opts.Data = body
	}
	return APICallPayload{Version: "1.0", Type: "gladys-api-call", Options: opts}
}

// APIResponsePayload is what an instance's RequestRouter handler
// replies with: an HTTP-shaped status/body pair.
type APIResponsePayload struct {
	Status int `json:"status"`
	Body   any `json:"body,omitempty"`
}
