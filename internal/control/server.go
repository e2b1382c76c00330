package control

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"

	"cleanstream/internal/filter"
	"cleanstream/internal/models"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodec lets gRPC carry JSON payloads instead of protobuf, so Message
// can be sent over the wire without a protoc-generated codec.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// controlServer is the interface grpc.ServiceDesc's registration check
// verifies *Server against; there's exactly one implementation, so this
// exists only to satisfy that check, not as a plugin point.
type controlServer interface {
	handleStream(grpc.ServerStream) error
}

func controlStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(controlServer).handleStream(stream)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: "cleanstream.Control",
	HandlerType: (*controlServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       controlStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "internal/control/server.go",
}

// Server implements the control stream against one filter.Filter instance
// plus its model store.
type Server struct {
	Addr   string
	Filter *filter.Filter
	Store  *models.Store
	Logger *log.Logger

	grpcServer *grpc.Server
	mu         sync.Mutex
	streams    map[grpc.ServerStream]struct{}
}

// NewServer builds a Server. addr may be "" to use the platform default.
func NewServer(addr string, f *filter.Filter, store *models.Store, logger *log.Logger) *Server {
	if addr == "" {
		addr = defaultAddr()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[cleanstream-control] ", log.LstdFlags)
	}
	s := &Server{Addr: addr, Filter: f, Store: store, Logger: logger, streams: make(map[grpc.ServerStream]struct{})}
	if store != nil {
		store.SetProgressCallback(s.broadcastProgress)
	}
	return s
}

// broadcastProgress fans a download-progress tick out to every connected
// client, the way the source's websocket server broadcasts to all sockets.
func (s *Server) broadcastProgress(modelID string, fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for stream := range s.streams {
		stream.SendMsg(&Message{Type: "download_progress", ModelID: modelID, Progress: fraction})
	}
}

func (s *Server) addStream(stream grpc.ServerStream) {
	s.mu.Lock()
	s.streams[stream] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeStream(stream grpc.ServerStream) {
	s.mu.Lock()
	delete(s.streams, stream)
	s.mu.Unlock()
}

// Start blocks serving the control stream until the listener fails or is
// closed.
func (s *Server) Start() error {
	lis, err := listen(s.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.grpcServer = grpc.NewServer(
		grpc.Creds(insecure.NewCredentials()),
		grpc.ForceServerCodec(jsonCodec{}),
	)
	s.grpcServer.RegisterService(&controlServiceDesc, s)
	server := s.grpcServer
	s.mu.Unlock()

	s.Logger.Printf("control plane listening on %s", s.Addr)
	return server.Serve(lis)
}

// Stop gracefully shuts the gRPC server down. s.mu is released before
// GracefulStop, since in-flight stream handlers take it on their way out.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.grpcServer
	s.mu.Unlock()
	if server != nil {
		server.GracefulStop()
	}
}

// handleStream runs one long-lived bidirectional exchange per connected
// client, reading and writing Message frames directly over the raw gRPC
// stream.
func (s *Server) handleStream(stream grpc.ServerStream) error {
	clientID := uuid.New().String()
	s.Logger.Printf("control: client %s connected", clientID)

	s.addStream(stream)
	defer func() {
		s.removeStream(stream)
		s.Logger.Printf("control: client %s disconnected", clientID)
	}()

	for {
		var msg Message
		if err := stream.RecvMsg(&msg); err != nil {
			return err
		}
		if err := s.handle(stream, &msg); err != nil {
			s.Logger.Printf("control: client %s: error handling %q: %v", clientID, msg.Type, err)
		}
	}
}

func (s *Server) handle(stream grpc.ServerStream, msg *Message) error {
	switch msg.Type {
	case "update_settings":
		if msg.Settings == nil {
			return stream.SendMsg(&Message{Type: "error", Error: "settings is required"})
		}
		s.Filter.Update(*msg.Settings)
		return stream.SendMsg(&Message{Type: "settings_updated"})

	case "activate":
		s.Filter.Activate()
		return stream.SendMsg(&Message{Type: "activated"})

	case "deactivate":
		s.Filter.Deactivate()
		return stream.SendMsg(&Message{Type: "deactivated"})

	case "get_status":
		return stream.SendMsg(&Message{
			Type:       "status",
			EngineName: s.Filter.Name(),
		})

	case "download_model":
		if msg.ModelID == "" || s.Store == nil {
			return stream.SendMsg(&Message{Type: "error", Error: "modelId is required"})
		}
		err := s.Store.Download(msg.ModelID, func(err error) {
			errStr := ""
			if err != nil {
				errStr = err.Error()
			}
			stream.SendMsg(&Message{Type: "download_completed", ModelID: msg.ModelID, Error: errStr})
		})
		if err != nil {
			return stream.SendMsg(&Message{Type: "error", Error: err.Error()})
		}
		return stream.SendMsg(&Message{Type: "download_started", ModelID: msg.ModelID})

	case "cancel_download":
		if s.Store != nil {
			s.Store.CancelDownload(msg.ModelID)
		}
		return stream.SendMsg(&Message{Type: "download_cancelled", ModelID: msg.ModelID})

	default:
		return stream.SendMsg(&Message{Type: "error", Error: "unknown message type: " + msg.Type})
	}
}

// listen dispatches to a unix-socket or Windows-named-pipe listener based
// on addr's scheme prefix.
func listen(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix:"):
		socketPath := strings.TrimPrefix(addr, "unix:")
		if err := removeIfExists(socketPath); err != nil {
			return nil, err
		}
		return net.Listen("unix", socketPath)
	case strings.HasPrefix(addr, "npipe:"):
		pipePath := strings.TrimPrefix(addr, "npipe:")
		return listenPipe(pipePath)
	default:
		return net.Listen("tcp", addr)
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return errors.New("control: empty socket path")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// defaultAddr picks a platform-appropriate listen address when the host
// doesn't configure one explicitly.
func defaultAddr() string {
	if runtime.GOOS == "windows" {
		return `npipe:\\.\pipe\cleanstream`
	}
	return "unix:/tmp/cleanstream.sock"
}
