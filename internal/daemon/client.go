package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"winewarden/utils"
)

// Client is a connection to a running daemon, used by the CLI's `--daemon`
// flag and `daemon ping/status` commands.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to the daemon's Unix socket at socketPath.
func Dial(socketPath string) (*Client, error) {
	if err := utils.ValidateSocketPath(socketPath); err != nil {
		return nil, err
	}
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req Request) (Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return Response{}, fmt.Errorf("write request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Type == "Error" {
		return resp, fmt.Errorf("daemon error: %s", resp.Message)
	}
	return resp, nil
}

// Ping sends a Ping request and expects a Pong response.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(Request{Type: "Ping"})
	if err != nil {
		return err
	}
	if resp.Type != "Pong" {
		return fmt.Errorf("unexpected response type %q", resp.Type)
	}
	return nil
}

// Status requests the daemon's current active-session count.
func (c *Client) Status() (Response, error) {
	return c.roundTrip(Request{Type: "Status"})
}

// Run submits a Run request and waits for the resulting session report.
func (c *Client) Run(payload RunRequestPayload) (Response, error) {
	return c.roundTrip(Request{Type: "Run", Payload: payload})
}
