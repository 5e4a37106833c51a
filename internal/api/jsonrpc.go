package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
	"github.com/sawirricardo/remix-realworld/pkg/telemetry"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MethodHandler is a function that handles a JSON-RPC method
type MethodHandler func(ctx *gin.Context, params json.RawMessage) (interface{}, error)

// JSONRPCHandler handles JSON-RPC requests
type JSONRPCHandler struct {
	methods map[string]MethodHandler
	logger  *zap.Logger
}

// NewJSONRPCHandler creates a new JSON-RPC handler
func NewJSONRPCHandler() *JSONRPCHandler {
	return &JSONRPCHandler{
		methods: make(map[string]MethodHandler),
		logger:  logging.WithComponent("jsonrpc"),
	}
}

// RegisterMethod registers a method handler
func (h *JSONRPCHandler) RegisterMethod(method string, handler MethodHandler) {
	h.methods[method] = handler
}

// Methods returns the registered method names
func (h *JSONRPCHandler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	return names
}

// Handle handles a JSON-RPC request
func (h *JSONRPCHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "jsonrpc.handle")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, nil, ErrParseError, "Parse error", err)
		return
	}

	if req.JSONRPC != "2.0" {
		h.sendError(c, req.ID, ErrInvalidRequest, "Invalid Request", fmt.Errorf("invalid jsonrpc version"))
		return
	}
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	handler, ok := h.methods[req.Method]
	if !ok {
		h.sendError(c, req.ID, ErrMethodNotFound, "Method not found", fmt.Errorf("method %s not found", req.Method))
		return
	}

	// a panicking method answers with an internal error instead of dropping the connection
	defer func() {
		if rec := recover(); rec != nil {
			h.sendError(c, req.ID, ErrInternalError, "Internal error", fmt.Errorf("method %s panicked: %v", req.Method, rec))
		}
	}()

	result, err := handler(c, req.Params)
	if err != nil {
		h.sendAppError(c, req.ID, err)
		return
	}

	h.sendResponse(c, req.ID, result)
}

// sendResponse sends a successful JSON-RPC response
func (h *JSONRPCHandler) sendResponse(c *gin.Context, id interface{}, result interface{}) {
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// sendAppError maps a service error onto a JSON-RPC error object
func (h *JSONRPCHandler) sendAppError(c *gin.Context, id interface{}, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.sendError(c, id, ErrServerError, "Server error", err)
		return
	}

	h.logger.Debug("JSON-RPC request rejected", zap.String("kind", kindName(kind)), zap.Error(err))

	rpcErr := &JSONRPCError{Code: rpcCode(kind), Message: err.Error()}
	var (
		verr   *apperr.ValidationError
		unauth *apperr.NotAuthenticatedError
	)
	switch {
	case errors.As(err, &verr):
		rpcErr.Message = "Invalid params"
		rpcErr.Data = verr.Fields
	case errors.As(err, &unauth):
		rpcErr.Data = gin.H{"redirect_to": unauth.RedirectTo}
	}

	c.JSON(http.StatusOK, JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: rpcErr})
}

// sendError sends an error JSON-RPC response
func (h *JSONRPCHandler) sendError(c *gin.Context, id interface{}, code int, message string, err error) {
	var data interface{}
	if err != nil {
		h.logger.Error("JSON-RPC error", zap.String("message", message), zap.Error(err))
		data = err.Error()
	}

	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

// bindParams decodes named params into dest
func bindParams(params json.RawMessage, dest interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, dest); err != nil {
		verr := apperr.NewValidationError()
		verr.Add("params", "must be an object: "+err.Error())
		return verr
	}
	return nil
}

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
	ErrServerError    = -32000
)

// Application error codes
const (
	ErrNotAuthenticated = -32001
	ErrForbidden        = -32003
	ErrNotFound         = -32004
	ErrConflict         = -32009
)
