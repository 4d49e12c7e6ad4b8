package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/sourcegraph/jsonrpc2"
)

// JSON-RPC method names.
const (
	MethodAgentRun       = "agent.run"
	MethodToolsList      = "tools.list"
	MethodActionParse    = "action.parse"
	MethodActionDispatch = "action.dispatch"
)

// DispatchParams carries a bare call for action.dispatch.
type DispatchParams struct {
	Call string `json:"call"`
}

// RPCHandler answers JSON-RPC 2.0 requests against a Service.
type RPCHandler struct {
	Service *Service
	Logger  *slog.Logger
}

// Handler adapts h to jsonrpc2. Requests are handled one at a time.
func (h *RPCHandler) Handler() jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(h.handle)
}

func (h *RPCHandler) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	h.logger().Debug("rpc request", "method", req.Method, "id", req.ID.String())
	switch req.Method {
	case MethodAgentRun:
		var params RunRequest
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		resp, err := h.Service.Run(ctx, params)
		if err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		return resp, nil
	case MethodToolsList:
		return h.Service.Tools(), nil
	case MethodActionParse:
		var params ParseRequest
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return h.Service.Parse(params.Text), nil
	case MethodActionDispatch:
		var params DispatchParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return h.Service.Dispatch(ctx, params.Call), nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil || string(*req.Params) == "null" {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (h *RPCHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// ServeStream serves rwc with Content-Length framing until the peer
// disconnects or ctx is cancelled.
func (h *RPCHandler) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, h.Handler())
	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// ServeStdio serves JSON-RPC over the given reader and writer, typically the
// process's stdin and stdout.
func (h *RPCHandler) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	err := h.ServeStream(ctx, &stdioReadWriteCloser{reader: in, writer: out})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type stdioReadWriteCloser struct {
	reader io.Reader
	writer io.Writer
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	var err error
	if c, ok := s.reader.(io.Closer); ok {
		err = c.Close()
	}
	if c, ok := s.writer.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
