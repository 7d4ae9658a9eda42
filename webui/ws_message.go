// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains WebSocket message types and constants.
package webui

import (
	"encoding/json"
	"time"
)

// Message type constants for WebSocket communication.
// These define the frames sent to connected clients during and between
// chat turns.
const (
	// MessageTypeStatus reports turn progress (use Stage* constants).
	MessageTypeStatus = "status"

	// MessageTypeAnswer carries the final response for a chat turn.
	MessageTypeAnswer = "answer"

	// MessageTypeError indicates a server-side error message.
	MessageTypeError = "error"

	// MessageTypeActivity announces a completed turn to all clients,
	// so open dashboards can refresh their activity feed.
	MessageTypeActivity = "activity"

	// MessageTypeSystemStatus indicates overall system health status change.
	MessageTypeSystemStatus = "system_status"

	// MessageTypePing is a keep-alive message from the server.
	MessageTypePing = "ping"

	// MessageTypePong is a keep-alive response from the client.
	MessageTypePong = "pong"

	// MessageTypeInitial contains the initial state snapshot on connection.
	MessageTypeInitial = "initial"
)

// Stage names streamed as status messages while a chat turn is processed.
// The order on the wire is always generation, execution, then chart.
const (
	StageGeneratingSQL  = "generating sql"
	StageRunningQuery   = "running query"
	StageRenderingChart = "rendering chart"
)

// WSMessage is the base structure for all WebSocket messages.
// It uses a common envelope format with type-specific data in the Data field.
type WSMessage struct {
	// Type identifies the message kind (use MessageType* constants)
	Type string `json:"type"`

	// Timestamp is when the message was created
	Timestamp time.Time `json:"timestamp"`

	// Data contains the type-specific payload (decoded based on Type)
	Data interface{} `json:"data,omitempty"`
}

// NewWSMessage creates a new WebSocket message with the current timestamp.
func NewWSMessage(msgType string, data interface{}) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// MarshalJSON serializes the message to JSON bytes.
// This is a convenience method for sending messages over WebSocket.
func (m WSMessage) MarshalJSON() ([]byte, error) {
	type Alias WSMessage
	return json.Marshal(Alias(m))
}

// StatusData reports which stage of a chat turn is running.
type StatusData struct {
	// SessionID is the chat session the turn belongs to
	SessionID string `json:"session_id"`

	// Stage is the current processing stage (use Stage* constants)
	Stage string `json:"stage"`
}

// ActivityData announces a completed chat turn.
type ActivityData struct {
	// SessionID is the chat session the turn belonged to
	SessionID string `json:"session_id"`

	// Question is the question that was answered
	Question string `json:"question"`

	// DurationMS is the end-to-end handling time in milliseconds
	DurationMS int64 `json:"duration_ms"`
}

// SystemStatusData contains overall system health information.
type SystemStatusData struct {
	// Status indicates system state: "running", "error", "stopped"
	Status string `json:"status"`

	// Uptime is the human-readable time since start, e.g. "2h 34m"
	Uptime string `json:"uptime"`

	// TotalProcessed is the total count of chat turns since start
	TotalProcessed int64 `json:"total_processed"`

	// TotalErrors is the count of failed turns since start
	TotalErrors int64 `json:"total_errors"`

	// Version is the application version string
	Version string `json:"version,omitempty"`
}

// ErrorData contains error information sent to clients.
type ErrorData struct {
	// Code is an application-specific error code
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`
}

// InitialData contains the state snapshot sent on connection. The session
// id assigned here is what the client echoes back with each question.
type InitialData struct {
	// SessionID is the chat session assigned to this connection
	SessionID string `json:"session_id"`

	// System contains current system status
	System SystemStatusData `json:"system"`
}

// Helper functions for creating common messages

// NewStatusMessage creates a turn progress message.
func NewStatusMessage(sessionID, stage string) WSMessage {
	return NewWSMessage(MessageTypeStatus, StatusData{SessionID: sessionID, Stage: stage})
}

// NewAnswerMessage creates the final message of a chat turn.
func NewAnswerMessage(resp *ChatResponse) WSMessage {
	return NewWSMessage(MessageTypeAnswer, resp)
}

// NewActivityMessage creates a completed-turn broadcast message.
func NewActivityMessage(data ActivityData) WSMessage {
	return NewWSMessage(MessageTypeActivity, data)
}

// NewSystemStatusMessage creates a system status message.
func NewSystemStatusMessage(data SystemStatusData) WSMessage {
	return NewWSMessage(MessageTypeSystemStatus, data)
}

// NewErrorMessage creates an error message.
func NewErrorMessage(code, message string) WSMessage {
	return NewWSMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}

// NewPingMessage creates a ping keep-alive message.
func NewPingMessage() WSMessage {
	return NewWSMessage(MessageTypePing, nil)
}

// NewInitialMessage creates the initial state snapshot message.
func NewInitialMessage(data InitialData) WSMessage {
	return NewWSMessage(MessageTypeInitial, data)
}
