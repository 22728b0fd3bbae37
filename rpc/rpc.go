package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/models"
	"github.com/wfunc/eduparty/services"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and serves GameService backed by ps.
func NewServer(addr string, ps *services.PlayerService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.Register(NewGameService(ps)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

func (s *Server) Addr() string {
	return s.address
}

// Start accepts connections until Stop is called.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return nil
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			return err
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService is the struct that exposes RPC methods.
type GameService struct {
	playerService *services.PlayerService
}

func NewGameService(ps *services.PlayerService) *GameService {
	return &GameService{playerService: ps}
}

type GetPlayerStatsArgs struct {
	UserID int64
}

type GetPlayerStatsReply struct {
	Stats models.PlayerStats
}

// GetPlayerStats follows the net/rpc method shape: exported args, pointer
// reply, error result.
func (gs *GameService) GetPlayerStats(args *GetPlayerStatsArgs, reply *GetPlayerStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	stats, err := gs.playerService.GetPlayerStats(ctx, args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = *stats
	return nil
}
