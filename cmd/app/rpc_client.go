package main

import (
	"context"
	"encoding/json"
	"net"
	"time"
)

// rpcClient speaks the ledger's JSON-RPC dialect over the server's unix
// socket, one request per connection.
type rpcClient struct {
	socket      string
	dialTimeout time.Duration
}

func newRPCClient(socket string) *rpcClient {
	return &rpcClient{socket: socket, dialTimeout: 5 * time.Second}
}

type rpcEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ID any `json:"id"`
}

func (c *rpcClient) call(ctx context.Context, method string, params any, out any) error {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := json.NewEncoder(conn).Encode(rpcEnvelope{JSONRPC: "2.0", Method: method, Params: params, ID: 1}); err != nil {
		return err
	}

	var reply rpcReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return err
	}
	if reply.Error != nil {
		return newServiceError(reply.Error.Code, reply.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(reply.Result, out)
}
