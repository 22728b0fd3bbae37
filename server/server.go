package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/eduparty/config"
	"github.com/wfunc/eduparty/game"
	"github.com/wfunc/eduparty/lobby"
	"github.com/wfunc/eduparty/logger"
	"github.com/wfunc/eduparty/monitor"
	"github.com/wfunc/eduparty/network"
	gameserver_rpc "github.com/wfunc/eduparty/rpc"
	"github.com/wfunc/eduparty/services"
	"github.com/wfunc/eduparty/session"
	"github.com/wfunc/eduparty/timer"
)

const shutdownTimeout = 5 * time.Second

// Options wires a GameServer to the components built in main.
type Options struct {
	Server          config.ServerConfig
	CleanupInterval time.Duration
	MinPlayers      int
	Settings        game.Settings
	Lobbies         *lobby.Manager
	// PlayerService records results and serves stats over RPC; may be nil.
	PlayerService *services.PlayerService
	Monitor       *monitor.Monitor
}

type GameServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	lobbyManager   *lobby.Manager
	sessionManager *session.Manager
	recorder       game.Recorder
	monitor        *monitor.Monitor
	timers         *timer.TimerManager

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	rpcServer  *gameserver_rpc.Server

	// ctx is the parent of every running game.
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	startedAt    time.Time
}

func NewGameServer(opts Options) *GameServer {
	if opts.Lobbies == nil {
		opts.Lobbies = lobby.NewManager(opts.Monitor)
	}
	if opts.MinPlayers < 1 {
		opts.MinPlayers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &GameServer{
		opts:           opts,
		lobbyManager:   opts.Lobbies,
		sessionManager: session.NewManager(),
		monitor:        opts.Monitor,
		ctx:            ctx,
		cancel:         cancel,
		startedAt:      time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	if opts.PlayerService != nil {
		s.recorder = opts.PlayerService
	}

	s.httpServer = &http.Server{
		Addr:    opts.Server.HTTPAddress,
		Handler: s.Handler(),
	}

	s.health = health.NewServer()
	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// Handler returns the HTTP routes: the WebSocket endpoint plus status,
// health and metrics.
func (s *GameServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleStatus)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws/{clientID}", s.handleWebSocket)
	r.Get("/lobbies/{code}", s.handleLobby)
	if s.monitor != nil {
		r.Handle("/metrics", s.monitor.Handler())
	}
	return r
}

// Start serves HTTP, gRPC health and RPC until ctx is cancelled or one of
// them fails, then shuts everything down.
func (s *GameServer) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	s.startTimers()

	g.Go(func() error {
		logger.Log.Infof("Game server listening on %s", s.opts.Server.HTTPAddress)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if addr := s.opts.Server.GRPCAddress; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			s.Shutdown()
			return fmt.Errorf("grpc listen: %w", err)
		}
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		g.Go(func() error {
			logger.Log.Infof("gRPC health listening on %s", addr)
			if err := s.grpcServer.Serve(lis); !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
	}

	if addr := s.opts.Server.RPCAddress; addr != "" && s.opts.PlayerService != nil {
		rpcServer, err := gameserver_rpc.NewServer(addr, s.opts.PlayerService)
		if err != nil {
			s.Shutdown()
			return fmt.Errorf("rpc listen: %w", err)
		}
		s.rpcServer = rpcServer
		g.Go(rpcServer.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown()
		return nil
	})

	return g.Wait()
}

func (s *GameServer) startTimers() {
	s.timers = timer.NewTimerManager(0)

	if interval := s.opts.CleanupInterval; interval > 0 {
		s.timers.AddTimer(interval, interval, func() {
			if n := s.lobbyManager.Cleanup(); n > 0 {
				logger.Log.Infof("Periodic cleanup removed %d lobbies", n)
			}
		})
	}
	if hb := s.opts.Server.Heartbeat; hb > 0 {
		s.timers.AddTimer(hb, hb, s.pingSessions)
	}
}

// pingSessions pings every connection that supports it. A peer that never
// answers hits its read deadline and its handler exits.
func (s *GameServer) pingSessions() {
	for _, sess := range s.sessionManager.All() {
		pinger, ok := sess.Conn.(interface{ Ping() error })
		if !ok {
			continue
		}
		if err := pinger.Ping(); err != nil {
			logger.Log.Debugf("Ping to session %s failed: %v", sess.GetID(), err)
			sess.Close()
		}
	}
}

// Shutdown stops every game and listener and closes open connections.
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		logger.Log.Info("Shutting down game server")
		s.cancel()
		if s.timers != nil {
			s.timers.Stop()
		}

		s.health.Shutdown()
		s.grpcServer.Stop()
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Log.Warnf("HTTP shutdown: %v", err)
		}

		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
		s.lobbyManager.Shutdown()
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn, s.opts.Server.WriteTimeout), userID)
}

// handleConnection owns conn for its whole life: the first command must
// create or join a lobby, after which commands are dispatched until the
// peer goes away.
func (s *GameServer) handleConnection(conn network.Connection, userID int64) {
	sess := session.NewSession(uuid.New().String(), userID, conn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()
	if hb := s.opts.Server.Heartbeat; hb > 0 {
		conn.SetHeartbeat(hb)
	}

	logger.Log.Infof("New connection from %s, user %d, session ID: %s", conn.RemoteAddr(), userID, sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		conn.Close()
	}()

	l, p, err := s.enterLobby(sess)
	if err != nil {
		logger.Log.Infof("Session %s rejected: %v", sess.GetID(), err)
		return
	}
	defer s.leaveLobby(l, p)

	for {
		cmd, err := conn.ReadCommand()
		if err != nil {
			var malformed *network.MalformedError
			if errors.As(err, &malformed) {
				logger.Log.Warnf("Session %s: %v", sess.GetID(), err)
				continue
			}
			return
		}
		sess.Touch()
		s.dispatch(l, p, cmd)
	}
}

// enterLobby reads the first command, which must be CREATE or JOIN.
// Anything else gets an ERROR and the connection is dropped.
func (s *GameServer) enterLobby(sess *session.Session) (*lobby.Lobby, *lobby.Player, error) {
	cmd, err := sess.Conn.ReadCommand()
	if err != nil {
		var malformed *network.MalformedError
		if errors.As(err, &malformed) {
			s.reject(sess, "Invalid command")
		}
		return nil, nil, err
	}
	sess.Touch()
	s.monitor.IncMessagesReceived(network.CommandLabel(cmd.Command))

	sess.Username = displayName(cmd.Username, sess.UserID)
	p := lobby.NewPlayer(sess.Conn, sess.Username, sess.UserID)

	switch cmd.Command {
	case network.CmdCreate:
		l, err := s.lobbyManager.CreateLobbyWith(p)
		if err != nil {
			s.reject(sess, "Could not create lobby")
			return nil, nil, err
		}
		if err := sess.Send(network.LobbyCodeEvent{Type: network.EvtLobbyCreated, Code: l.Code}); err != nil {
			s.leaveLobby(l, p)
			return nil, nil, err
		}
		l.BroadcastPlayerList()
		sess.SetLobbyCode(l.Code)
		return l, p, nil

	case network.CmdJoin:
		l, ok := s.lobbyManager.GetLobby(cmd.Code)
		if !ok {
			s.reject(sess, "Lobby not found")
			return nil, nil, fmt.Errorf("join %q: %w", cmd.Code, lobby.ErrLobbyNotFound)
		}
		if err := sess.Send(network.LobbyCodeEvent{Type: network.EvtLobbyJoined, Code: l.Code}); err != nil {
			return nil, nil, err
		}
		if err := l.Connect(p); err != nil {
			s.reject(sess, "Lobby not found")
			return nil, nil, fmt.Errorf("join %q: %w", cmd.Code, err)
		}
		sess.SetLobbyCode(l.Code)
		return l, p, nil

	default:
		s.reject(sess, "Invalid command")
		return nil, nil, fmt.Errorf("unexpected first command %q", cmd.Command)
	}
}

// displayName trims username and falls back to "Player<id>" when blank.
func displayName(username string, userID int64) string {
	if name := strings.TrimSpace(username); name != "" {
		return name
	}
	return fmt.Sprintf("Player%d", userID)
}

func (s *GameServer) reject(sess *session.Session, msg string) {
	if err := sess.Send(network.NewError(msg)); err != nil {
		logger.Log.Debugf("Session %s: sending error: %v", sess.GetID(), err)
	}
}

func (s *GameServer) leaveLobby(l *lobby.Lobby, p *lobby.Player) {
	if l.Disconnect(p) {
		logger.Log.Infof("Player %d left lobby %s", p.ID, l.Code)
	}
	if n := s.lobbyManager.Cleanup(); n > 0 {
		logger.Log.Infof("Removed %d empty lobbies", n)
	}
}

func (s *GameServer) dispatch(l *lobby.Lobby, p *lobby.Player, cmd *network.Command) {
	start := time.Now()
	s.monitor.IncMessagesReceived(network.CommandLabel(cmd.Command))
	defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()

	switch cmd.Command {
	case network.CmdStartGame:
		if err := s.startGame(l, p); err != nil {
			logger.Log.Infof("Lobby %s: START_GAME from player %d ignored: %v", l.Code, p.ID, err)
		}
	case network.CmdGameInput:
		if g := l.Game(); g != nil {
			g.HandleInput(p, cmd.InputText())
		}
	case network.CmdCreate, network.CmdJoin:
		logger.Log.Debugf("Lobby %s: player %d is already in a lobby", l.Code, p.ID)
	default:
		logger.Log.Infof("Unknown command: %q", cmd.Command)
	}
}

// startGame attaches a new session to l and runs it in the background.
func (s *GameServer) startGame(l *lobby.Lobby, p *lobby.Player) error {
	if !p.IsHost() {
		return lobby.ErrNotHost
	}
	if n := l.Len(); n < s.opts.MinPlayers {
		return fmt.Errorf("%w: have %d, need %d", lobby.ErrNotEnoughPlayers, n, s.opts.MinPlayers)
	}

	g := game.NewSession(l, s.opts.Settings, s.recorder, s.monitor)
	if err := l.AttachGame(g); err != nil {
		return err
	}
	go g.Start(s.ctx)
	return nil
}
