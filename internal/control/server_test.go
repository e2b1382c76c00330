package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"cleanstream/internal/config"
	"cleanstream/internal/filter"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// jsonClient is a lightweight gRPC JSON client for the Control stream.
type jsonClient struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
}

func newJSONClient(t *testing.T, addr string) *jsonClient {
	t.Helper()

	conn, err := grpc.Dial(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			if len(addr) > 5 && addr[:5] == "unix:" {
				return net.DialTimeout("unix", addr[5:], 3*time.Second)
			}
			return net.DialTimeout("tcp", addr, 3*time.Second)
		}),
	)
	if err != nil {
		t.Fatalf("dial grpc: %v", err)
	}

	stream, err := conn.NewStream(context.Background(), &controlServiceDesc.Streams[0], "/cleanstream.Control/Stream")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	return &jsonClient{conn: conn, stream: stream}
}

func (c *jsonClient) send(msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var any interface{}
	if err := json.Unmarshal(raw, &any); err != nil {
		return err
	}
	return c.stream.SendMsg(any)
}

func (c *jsonClient) recv(timeout time.Duration) (Message, error) {
	var msg Message
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	recvDone := make(chan error, 1)
	go func() { recvDone <- c.stream.RecvMsg(&msg) }()
	select {
	case err := <-recvDone:
		return msg, err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (c *jsonClient) close() {
	_ = c.stream.CloseSend()
	_ = c.conn.Close()
}

func startTestServer(t *testing.T, socketPath string) *Server {
	t.Helper()

	settings := config.Defaults()
	f := filter.Create(1, 16000, settings, nil, nil, nil)
	t.Cleanup(func() { f.Destroy() })

	s := NewServer("unix:"+socketPath, f, nil, nil)
	go func() {
		if err := s.Start(); err != nil {
			t.Logf("control server stopped: %v", err)
		}
	}()
	t.Cleanup(s.Stop)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", socketPath); err == nil {
			conn.Close()
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("control socket never came up at %s", socketPath)
	return nil
}

func TestControlStream_StatusAndSettings(t *testing.T) {
	socket := fmt.Sprintf("/tmp/cleanstream-test-%d.sock", os.Getpid())
	os.Remove(socket)

	s := startTestServer(t, socket)
	t.Cleanup(func() { os.Remove(socket) })

	client := newJSONClient(t, "unix:"+socket)
	defer client.close()

	if err := client.send(Message{Type: "get_status"}); err != nil {
		t.Fatalf("send get_status: %v", err)
	}
	msg, err := client.recv(2 * time.Second)
	if err != nil {
		t.Fatalf("recv status: %v", err)
	}
	if msg.Type != "status" {
		t.Fatalf("got type %q, want status", msg.Type)
	}

	newSettings := config.Defaults()
	newSettings.DoSilence = false
	if err := client.send(Message{Type: "update_settings", Settings: &newSettings}); err != nil {
		t.Fatalf("send update_settings: %v", err)
	}
	msg, err = client.recv(2 * time.Second)
	if err != nil {
		t.Fatalf("recv settings_updated: %v", err)
	}
	if msg.Type != "settings_updated" {
		t.Fatalf("got type %q, want settings_updated", msg.Type)
	}

	if got := s.Filter.Name(); got == "" {
		t.Fatalf("expected a non-empty engine name once initialised")
	}
}

func TestControlStream_UnknownMessageType(t *testing.T) {
	socket := fmt.Sprintf("/tmp/cleanstream-test-%d.sock", os.Getpid()+1)
	os.Remove(socket)

	startTestServer(t, socket)
	t.Cleanup(func() { os.Remove(socket) })

	client := newJSONClient(t, "unix:"+socket)
	defer client.close()

	if err := client.send(Message{Type: "not_a_real_message"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg, err := client.recv(2 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("got type %q, want error", msg.Type)
	}
}
