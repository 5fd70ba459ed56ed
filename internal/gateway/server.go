// Package gateway speaks JSON-RPC 2.0 over newline-delimited frames and
// maps protocol methods onto the tool catalog, the dispatcher, and the
// embedded documentation. One server serves one client connection.
package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/marketscope/marketscope/internal/availability"
	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/dispatch"
	"github.com/marketscope/marketscope/internal/notify"
	"github.com/marketscope/marketscope/internal/registry"
)

const (
	serverName      = "marketscope"
	serverVersion   = "1.0.0"
	protocolVersion = "2024-11-05"
)

// Server is the protocol front end.
type Server struct {
	reg     *registry.Registry
	disp    *dispatch.Dispatcher
	checker *availability.Checker
	bus     *notify.Bus

	cache *cache.Cache

	mu     sync.Mutex // protects writes and client identity
	w      io.Writer
	client string
}

// ServerOption configures optional server features.
type ServerOption func(*Server)

// WithCacheStats includes cache statistics in ping responses.
func WithCacheStats(c *cache.Cache) ServerOption {
	return func(s *Server) { s.cache = c }
}

// NewServer wires the protocol front end. checker and bus may be nil.
func NewServer(reg *registry.Registry, disp *dispatch.Dispatcher, checker *availability.Checker, bus *notify.Bus, opts ...ServerOption) *Server {
	s := &Server{reg: reg, disp: disp, checker: checker, bus: bus, client: "client"}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RunStdio serves the connected client over stdin/stdout until EOF.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.run(ctx, os.Stdin, os.Stdout)
}

// RunConn serves over an arbitrary reader/writer pair.
func (s *Server) RunConn(ctx context.Context, r io.Reader, w io.Writer) error {
	return s.run(ctx, r, w)
}

func (s *Server) run(ctx context.Context, r io.Reader, w io.Writer) error {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()

	if s.bus != nil {
		stop := s.forwardEvents(ctx)
		defer stop()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.dispatch(ctx, line)
		if resp == nil {
			continue // notification, no response needed
		}
		if err := s.write(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

// forwardEvents relays business events to the client as protocol
// notifications until the context ends.
func (s *Server) forwardEvents(ctx context.Context) func() {
	ch := s.bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				switch e.Type {
				case notify.EventLargeTAM, notify.EventHighCAGR, notify.EventLowConfidence:
					if err := s.Notify("notifications/marketscope/event", e); err != nil {
						slog.Debug("event forward failed", "error", err)
					}
				}
			}
		}
	}()
	return func() {
		s.bus.Unsubscribe(ch)
		<-done
	}
}

func (s *Server) dispatch(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: CodeParseError, Message: "invalid JSON: " + err.Error()},
		}
	}

	// Notifications have no ID; don't send a response.
	if req.ID == nil {
		s.handleNotification(req)
		return nil
	}

	var result any
	var rpcErr *RPCError

	switch req.Method {
	case "initialize":
		result, rpcErr = s.handleInitialize(req.Params)
	case "ping":
		if s.cache != nil {
			result = map[string]any{"cache": s.cache.Stats()}
		} else {
			result = map[string]any{}
		}
	case "tools/list":
		result = s.handleToolsList()
	case "tools/call":
		result, rpcErr = s.handleToolsCall(ctx, req.Params)
	case "resources/list":
		result = map[string]any{"resources": listResources()}
	case "resources/read":
		result, rpcErr = s.handleResourcesRead(req.Params)
	case "prompts/list":
		result = map[string]any{"prompts": listPrompts()}
	case "prompts/get":
		result, rpcErr = s.handlePromptsGet(req.Params)
	default:
		rpcErr = &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("unknown method: %s", req.Method),
		}
	}

	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = &RPCError{Code: CodeInternalError, Message: "encode result: " + err.Error()}
		return resp
	}
	resp.Result = raw
	return resp
}

func (s *Server) handleNotification(req Request) {
	switch req.Method {
	case "notifications/initialized":
		slog.Info("client initialized")
	default:
		slog.Debug("unhandled notification", "method", req.Method)
	}
}

func (s *Server) handleInitialize(params json.RawMessage) (any, *RPCError) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: "initialize: " + err.Error()}
		}
	}
	if p.ClientInfo.Name != "" {
		s.mu.Lock()
		s.client = p.ClientInfo.Name
		s.mu.Unlock()
	}
	slog.Info("client connected", "client", p.ClientInfo.Name, "version", p.ClientInfo.Version)

	return &InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: ServerCapability{
			Tools:     &ListCapability{},
			Resources: &ListCapability{},
			Prompts:   &ListCapability{},
		},
		ServerInfo: ServerInfo{Name: serverName, Version: serverVersion},
	}, nil
}

func (s *Server) handleToolsList() any {
	tools := make([]ToolInfo, 0, s.reg.Len())
	for _, t := range s.reg.Tools() {
		desc := t.Description
		if s.checker != nil {
			desc = s.checker.Annotate(desc, s.checker.Tool(t))
		}
		schema, _ := json.Marshal(t.InputSchema())
		tools = append(tools, ToolInfo{Name: t.Name, Description: desc, InputSchema: schema})
	}
	return map[string]any{"tools": tools}
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var call CallToolRequest
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "tools/call: " + err.Error()}
	}
	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: "tools/call arguments: " + err.Error()}
		}
	}

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	return s.disp.Call(ctx, client, call.Name, args), nil
}

func (s *Server) handleResourcesRead(params json.RawMessage) (any, *RPCError) {
	var req ReadResourceRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "resources/read: " + err.Error()}
	}
	contents, err := readResource(req.URI)
	if err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return map[string]any{"contents": []ResourceContents{*contents}}, nil
}

func (s *Server) handlePromptsGet(params json.RawMessage) (any, *RPCError) {
	var req GetPromptRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "prompts/get: " + err.Error()}
	}
	res, err := renderPrompt(req.Name, req.Arguments)
	if err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return res, nil
}

// Notify sends a JSON-RPC notification (no id field) to the client.
func (s *Server) Notify(method string, params any) error {
	notif := struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return fmt.Errorf("server not running")
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}

func (s *Server) write(resp *Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}
