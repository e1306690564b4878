package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"xdao.co/c2paview/internal/config"
	"xdao.co/c2paview/internal/logging"
	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/casregistry"
	"xdao.co/c2paview/storage/grpccas"
	_ "xdao.co/c2paview/storage/ipfs"
	_ "xdao.co/c2paview/storage/localfs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("xdao-c2pad", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC snapshot store listen address (empty disables)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "CAS backend name")
	fs.StringVar(&cfg.LocalFSDir, "localfs-dir", cfg.LocalFSDir, "localfs root directory")
	fs.StringVar(&cfg.MirrorDir, "mirror-dir", cfg.MirrorDir, "localfs replica written alongside the backend")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(errOut, "logging: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	cas, closeFn, err := cfg.OpenCAS(ctx, casregistry.UsageDaemon)
	if err != nil {
		logger.Error("open backend", zap.String("backend", cfg.Backend), zap.Error(err))
		return 2
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn("close backend", zap.Error(err))
		}
	}()

	srv := newServer(cas, logger)
	srv.defaultLocale = cfg.Locale
	srv.viewMoreURL = cfg.ViewMoreURL
	srv.maxBodyBytes = int64(cfg.MaxObjectBytes)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		logger.Error("listen http", zap.String("addr", cfg.HTTPAddr), zap.Error(err))
		return 1
	}
	httpServer := &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcServer *grpc.Server
	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Error("listen grpc", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
			_ = httpLis.Close()
			return 1
		}
		grpcServer = newGRPCServer(cas, logger, cfg.MaxObjectBytes)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", httpLis.Addr().String()), zap.String("backend", cfg.Backend))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	if grpcServer != nil {
		g.Go(func() error {
			logger.Info("grpc listening", zap.String("addr", grpcLis.Addr().String()), zap.String("service", grpccas.ServiceName))
			if err := grpcServer.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func newGRPCServer(cas storage.CAS, logger *zap.Logger, maxObjectBytes int) *grpc.Server {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(unaryLogger(logger))}
	if maxObjectBytes > 0 {
		// Leave room for message framing around the largest object.
		limit := maxObjectBytes + 1<<16
		opts = append(opts, grpc.MaxRecvMsgSize(limit), grpc.MaxSendMsgSize(limit))
	}
	s := grpc.NewServer(opts...)
	grpccas.RegisterSnapshotStoreServer(s, &grpccas.Server{CAS: cas, Logger: logger, MaxObjectBytes: maxObjectBytes})
	return s
}

func unaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start))}
		if err != nil {
			logger.Info("grpc request", append(fields, zap.Error(err))...)
		} else {
			logger.Info("grpc request", fields...)
		}
		return resp, err
	}
}
