package rkr

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coalforge/rkr/mcd"
	"github.com/coalforge/rkr/mcd/demo"
)

// createTestTCPPair creates a connected pair of TCP connections for testing,
// one standing in for the remote server.
func createTestTCPPair(t *testing.T) (server, client *net.TCPConn) {
	t.Helper()

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer listener.Close()

	clientChan := make(chan *net.TCPConn, 1)
	errChan := make(chan error, 1)
	go func() {
		conn, err := net.DialTCP("tcp", nil, listener.Addr().(*net.TCPAddr))
		if err != nil {
			errChan <- err
			return
		}
		clientChan <- conn
	}()

	serverConn, err := listener.AcceptTCP()
	if err != nil {
		t.Fatalf("failed to accept: %v", err)
	}

	select {
	case clientConn := <-clientChan:
		return serverConn, clientConn
	case err := <-errChan:
		serverConn.Close()
		t.Fatalf("client dial failed: %v", err)
	case <-time.After(5 * time.Second):
		serverConn.Close()
		t.Fatal("timeout waiting for client connection")
	}
	return nil, nil
}

func frameOf(t *testing.T, id int32, body []byte) []byte {
	t.Helper()
	var idBuf bytes.Buffer
	if err := mcd.EncodeVarInt(&idBuf, uint32(id)); err != nil {
		t.Fatalf("encode id: %v", err)
	}
	payload := append(idBuf.Bytes(), body...)
	var frame bytes.Buffer
	if err := mcd.EncodeVarInt(&frame, uint32(len(payload))); err != nil {
		t.Fatalf("encode length: %v", err)
	}
	frame.Write(payload)
	return frame.Bytes()
}

func stringBody(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := mcd.EncodeVarInt(&buf, uint32(len(s))); err != nil {
		t.Fatalf("encode string length: %v", err)
	}
	buf.WriteString(s)
	return buf.Bytes()
}

func TestEngineStatusPingPlaintext(t *testing.T) {
	server, client := createTestTCPPair(t)
	defer server.Close()

	engine, err := New(WithRegistry(demo.NewRegistry()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	statusCh := make(chan *demo.StatusResponse, 1)
	pongCh := make(chan *demo.Pong, 1)
	engine.Bus().RegisterCallback("Status/Clientbound/StatusResponse", func(payload any, _ string) {
		statusCh <- payload.(*demo.StatusResponse)
	})
	engine.Bus().RegisterCallback("Status/Clientbound/Pong", func(payload any, _ string) {
		pongCh <- payload.(*demo.Pong)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- engine.run(ctx, client, ConnectInfo{Addr: "test", Port: 0}) }()

	engine.SetState(mcd.Status)
	if err := engine.Send(&demo.StatusRequest{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := engine.Send(&demo.Ping{Payload: 42}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Act as the server: read the two serverbound frames, then answer.
	buf := make([]byte, 256)
	n, err := server.Read(buf)
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	_ = buf[:n] // two frames may or may not have coalesced; content not re-parsed here.

	if _, err := server.Write(frameOf(t, 0x00, stringBody(t, `{"status":"ok"}`))); err != nil {
		t.Fatalf("server write status response: %v", err)
	}
	if _, err := server.Write(frameOf(t, 0x01, []byte{0, 0, 0, 0, 0, 0, 0, 42})); err != nil {
		t.Fatalf("server write pong: %v", err)
	}

	select {
	case resp := <-statusCh:
		if resp.JSON != `{"status":"ok"}` {
			t.Errorf("status JSON = %q", resp.JSON)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for status response")
	}

	select {
	case pong := <-pongCh:
		if pong.Payload != 42 {
			t.Errorf("pong payload = %d", pong.Payload)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for pong")
	}

	_ = engine.Shutdown()
	<-done
}

func TestEngineFragmentedReadAccumulates(t *testing.T) {
	server, client := createTestTCPPair(t)
	defer server.Close()

	engine, err := New(WithRegistry(demo.NewRegistry()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	engine.SetState(mcd.Status)

	statusCh := make(chan *demo.StatusResponse, 1)
	engine.Bus().RegisterCallback("Status/Clientbound/StatusResponse", func(payload any, _ string) {
		statusCh <- payload.(*demo.StatusResponse)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- engine.run(ctx, client, ConnectInfo{Addr: "test", Port: 0}) }()

	frame := frameOf(t, 0x00, stringBody(t, `{"status":"fragmented"}`))
	for _, b := range frame {
		if _, err := server.Write([]byte{b}); err != nil {
			t.Fatalf("server write byte: %v", err)
		}
	}

	select {
	case resp := <-statusCh:
		if resp.JSON != `{"status":"fragmented"}` {
			t.Errorf("status JSON = %q", resp.JSON)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for a byte-at-a-time frame to assemble")
	}

	_ = engine.Shutdown()
	<-done
}

func TestEngineMalformedFrameKillsConnectionOnce(t *testing.T) {
	server, client := createTestTCPPair(t)
	defer server.Close()

	engine, err := New(WithRegistry(demo.NewRegistry()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	engine.SetState(mcd.Status)

	var killCount int32
	killed := make(chan error, 1)
	engine.Bus().RegisterCallback(EventKill, func(payload any, _ string) {
		atomic.AddInt32(&killCount, 1)
		killed <- payload.(error)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- engine.run(ctx, client, ConnectInfo{Addr: "test", Port: 0}) }()

	// Five 0x80 bytes: a varint whose fifth byte still carries the
	// continuation bit, which can never be a valid 32-bit length prefix.
	if _, err := server.Write([]byte{0x80, 0x80, 0x80, 0x80, 0x80}); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected run to terminate with an error")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the engine to terminate on a malformed frame")
	}

	select {
	case err := <-killed:
		if err == nil {
			t.Fatal("expected the kill event's payload to be the terminal error")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the kill event")
	}

	// run is not re-entrant once it has returned; a second call against the
	// same closed conn must fail immediately rather than hang.
	if err := engine.run(ctx, client, ConnectInfo{}); err == nil {
		t.Fatal("expected a second run over the closed connection to fail")
	}

	if got := atomic.LoadInt32(&killCount); got != 1 {
		t.Fatalf("kill event fired %d times, want exactly 1", got)
	}
}
