// Package mcp implements the Model Context Protocol (MCP) server for
// Lorekeep. It exposes vault search, health, cache, and metrics tools to
// AI clients over stdio.
package mcp

import (
	"errors"
	"fmt"

	verrors "github.com/lorekeep/lorekeep/internal/errors"
)

// Custom MCP error codes for Lorekeep.
const (
	// ErrCodeDependencyMissing indicates a backing collection is absent.
	ErrCodeDependencyMissing = -32001

	// ErrCodeDependencyCorrupted indicates a backing collection cannot
	// serve queries.
	ErrCodeDependencyCorrupted = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params protocol error.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts internal errors to MCP protocol errors.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var vErr *verrors.VaultError
	if errors.As(err, &vErr) {
		code := ErrCodeInternalError
		switch vErr.Code {
		case verrors.ErrCodeCollectionMissing:
			code = ErrCodeDependencyMissing
		case verrors.ErrCodeCollectionCorrupted, verrors.ErrCodeCollectionUnavailable:
			code = ErrCodeDependencyCorrupted
		case verrors.ErrCodeStrategyTimeout:
			code = ErrCodeTimeout
		case verrors.ErrCodeInvalidQuery, verrors.ErrCodeQueryEmpty, verrors.ErrCodeInvalidOption:
			code = ErrCodeInvalidParams
		}
		return &MCPError{Code: code, Message: vErr.Message, Data: vErr.Details}
	}

	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}
