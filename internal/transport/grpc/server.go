package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName — имя в health-протоколе для realtime-ядра.
const ServiceName = "board.v1.Realtime"

// Server — gRPC только для health-check'ов оркестратора.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

func NewServer(defaultTimeout time.Duration) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(defaultTimeout)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	s := &Server{srv: srv, health: hs}
	s.SetServing(false)
	return s
}

func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// WatchStorage периодически пингует хранилище и переключает статус.
func (s *Server) WatchStorage(ctx context.Context, ping func(context.Context) error, every time.Duration) error {
	if every <= 0 {
		every = 10 * time.Second
	}
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, every/2)
		defer cancel()
		err := ping(pctx)
		if err != nil {
			slog.Warn("grpc health: storage ping failed", slog.Any("err", err))
		}
		s.SetServing(err == nil)
	}

	check()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			check()
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// GracefulStop сначала объявляет NOT_SERVING, потом дожидается активных вызовов.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
