// Package main provides a CI-friendly WebSocket smoke test for Beacon realtime.
//
// It validates:
//   - handshake + subprotocol selection
//   - identify/ack session establishment
//   - direct send A -> B with delivered ack
//   - message_receive push on B, tagged with A's user id
//   - send to an offline user acked as recipient_offline, with no push anywhere
//   - reconnect supersession: a second connection for B takes over addressing
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "beacon/shared/contracts/realtime/v1"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "beacon.realtime.v1"
	maxReadBytes       = 1 << 20 // 1MiB
)

type smokeClient struct {
	name   string
	conn   *websocket.Conn
	connID string
	userID string

	inbox chan v1.Envelope
	errCh chan error
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		userA   = flag.String("user-a", "smoke-alice", "User id for client A (dev verifier token user:<id>)")
		userB   = flag.String("user-b", "smoke-bob", "User id for client B")
		text    = flag.String("text", "hello beacon 👋", "Message text to send")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	a := mustConnect(root, "A", *wsURL, *origin, *userA, *timeout)
	defer closeWS(a.conn)

	b := mustConnect(root, "B", *wsURL, *origin, *userB, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("connected: A=%s B=%s origin=%q\n", a.connID, b.connID, *origin)
	}

	body := mustJSON(map[string]string{"text": *text})
	clientMsgID := fmt.Sprintf("cmsg-%d", time.Now().UnixNano())

	mustSendAndAssertAck(root, a, *userB, clientMsgID, body, v1.OutcomeDelivered, *timeout)
	mustAssertReceive(root, b, *userA, clientMsgID, body, *timeout)

	// Offline recipient: soft miss, no push anywhere.
	offlineMsgID := fmt.Sprintf("cmsg-off-%d", time.Now().UnixNano())
	mustSendAndAssertAck(root, a, "smoke-nobody", offlineMsgID, body, v1.OutcomeRecipientOffline, *timeout)
	mustAssertNoType(root, b, v1.TypeMessageReceive, 1200*time.Millisecond)
	mustAssertNoType(root, a, v1.TypeMessageReceive, 1200*time.Millisecond)

	// Reconnect supersession: b2 takes over addressing for userB while b is still open.
	b2 := mustConnect(root, "B2", *wsURL, *origin, *userB, *timeout)
	defer closeWS(b2.conn)

	reMsgID := fmt.Sprintf("cmsg-re-%d", time.Now().UnixNano())
	mustSendAndAssertAck(root, a, *userB, reMsgID, body, v1.OutcomeDelivered, *timeout)
	mustAssertReceive(root, b2, *userA, reMsgID, body, *timeout)
	mustAssertNoType(root, b, v1.TypeMessageReceive, 1200*time.Millisecond)

	fmt.Printf("OK: A=%s B=%s B2=%s\n", a.connID, b.connID, b2.connID)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, wsURL, origin, userID string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, defaultSubprotocol)

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		conn:  conn,
		inbox: make(chan v1.Envelope, 512),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()

	identify := v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeIdentify,
		ID:      fmt.Sprintf("%s-identify", name),
		TS:      time.Now().UTC(),
		Payload: mustJSON(v1.IdentifyPayload{Token: "user:" + userID}),
	}
	mustWriteWithTimeout(parent, conn, identify, stepTimeout)

	ack := c.mustReadUntilType(parent, v1.TypeIdentifyAck, stepTimeout, nil)

	var p v1.IdentifyAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal identify_ack payload (%s): %v", name, err)
	}
	if strings.TrimSpace(p.ConnectionID) == "" {
		fatalf("identify_ack missing connection_id (%s)", name)
	}
	if p.UserID != userID {
		fatalf("identify_ack user_id mismatch (%s): got=%q want=%q", name, p.UserID, userID)
	}
	c.connID = p.ConnectionID
	c.userID = p.UserID

	return c
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad json: %w", err):
				default:
				}
				return
			}
			if err := env.Validate(); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad envelope: %w", err):
				default:
				}
				return
			}

			select {
			case c.inbox <- env:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func mustSendAndAssertAck(parent context.Context, c *smokeClient, to, clientMsgID string, body json.RawMessage, wantOutcome string, stepTimeout time.Duration) {
	env := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeMessageSend,
		ID:   fmt.Sprintf("%s-send-%s", c.name, clientMsgID),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.MessageSendPayload{
			To:          to,
			ClientMsgID: clientMsgID,
			Body:        body,
		}),
	}
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)

	skip := map[string]struct{}{v1.TypeMessageReceive: {}}
	ack := c.mustReadUntilType(parent, v1.TypeMessageAck, stepTimeout, skip)

	var p v1.MessageAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal message_ack payload (%s): %v", c.name, err)
	}
	if p.To != to {
		fatalf("ack to mismatch (%s): got=%q want=%q", c.name, p.To, to)
	}
	if p.ClientMsgID != clientMsgID {
		fatalf("ack client_msg_id mismatch (%s): got=%q want=%q", c.name, p.ClientMsgID, clientMsgID)
	}
	if p.Outcome != wantOutcome {
		fatalf("ack outcome mismatch (%s): got=%q want=%q", c.name, p.Outcome, wantOutcome)
	}
}

func mustAssertReceive(parent context.Context, c *smokeClient, from, clientMsgID string, body json.RawMessage, stepTimeout time.Duration) {
	env := c.mustReadUntilType(parent, v1.TypeMessageReceive, stepTimeout, nil)

	var p v1.MessageReceivePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		fatalf("unmarshal message_receive payload (%s): %v", c.name, err)
	}

	if p.From != from {
		fatalf("receive from mismatch (%s): got=%q want=%q", c.name, p.From, from)
	}
	if p.ClientMsgID != clientMsgID {
		fatalf("receive client_msg_id mismatch (%s): got=%q want=%q", c.name, p.ClientMsgID, clientMsgID)
	}
	if string(p.Body) != string(body) {
		fatalf("receive body mismatch (%s): got=%s want=%s", c.name, p.Body, body)
	}
	if p.ServerTS.IsZero() {
		fatalf("receive server_ts missing/zero (%s)", c.name)
	}
}

func mustAssertNoType(parent context.Context, c *smokeClient, forbiddenType string, wait time.Duration) {
	ctx, cancel := context.WithTimeout(parent, wait)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed unexpectedly (%s)", c.name)
			}
			fatalf("connection closed unexpectedly (%s): %v", c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed unexpectedly (%s)", c.name)
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			if env.Type == forbiddenType {
				fatalf("unexpected %s received (%s)", forbiddenType, c.name)
			}
		}
	}
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration, skipTypes map[string]struct{}) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			if skipTypes != nil {
				if _, ok := skipTypes[env.Type]; ok {
					continue
				}
			}
			fatalf("unexpected envelope type (%s): got=%q want=%q", c.name, env.Type, wantType)
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
