// Package api exposes the match manager to the messaging gateway over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sbwgg/Checker-bot/internal/domain/manager"
	"github.com/sbwgg/Checker-bot/internal/domain/match"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
	"github.com/sbwgg/Checker-bot/internal/domain/vote"
	"github.com/sbwgg/Checker-bot/pkg/logger"
)

const (
	defaultLadderLimit = 10
	defaultMaxLimit    = 100
	defaultRating      = 2000
)

// Matches is the manager surface used by the handlers.
type Matches interface {
	CreateMatch(ctx context.Context, req manager.CreateRequest) (*match.Match, error)
	Match(ctx context.Context, matchID string) (*match.Match, error)
	MatchOfPlayer(ctx context.Context, playerID uint64) (*match.Match, bool)
	RaiseVote(ctx context.Context, req manager.RaiseRequest) (*vote.Vote, error)
	Cast(ctx context.Context, b manager.Ballot) (manager.CastResult, error)
	CastMap(ctx context.Context, playerID uint64, candidate int) (*match.Match, error)
	RemoveMapBallot(ctx context.Context, playerID uint64) (*match.Match, error)
	Start(ctx context.Context, matchID string) error
	DecideMap(ctx context.Context, matchID string) (model.GameMap, error)
	RetrySettlement(ctx context.Context, matchID string) error
	Stats(ctx context.Context) (types.Stats, error)
}

// Players is the store surface used by the handlers.
type Players interface {
	GetPlayer(ctx context.Context, id uint64) (model.Player, error)
	SavePlayer(ctx context.Context, p model.Player) error
	Rank(ctx context.Context, id uint64) (types.LadderEntry, error)
	Ladder(ctx context.Context, n int) ([]types.LadderEntry, error)
}

// Server wires HTTP routes for the gateway API.
type Server struct {
	matches       Matches
	players       Players
	logger        logger.Logger
	maxLimit      int
	defaultRating int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxLimit caps the ladder page size.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithDefaultRating sets the rating given to newly registered players.
func WithDefaultRating(r int) Option {
	return func(s *Server) {
		if r >= 0 {
			s.defaultRating = r
		}
	}
}

// NewServer creates a new API server.
func NewServer(matches Matches, players Players, opts ...Option) *Server {
	s := &Server{
		matches:       matches,
		players:       players,
		logger:        logger.Get().Named("api"),
		maxLimit:      defaultMaxLimit,
		defaultRating: defaultRating,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the chi router with every route attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	r.Get("/stats", s.handleStats)

	r.Post("/players", s.handleRegisterPlayer)
	r.Get("/players/{id}/match", s.handlePlayerMatch)
	r.Get("/players/{id}/rank", s.handlePlayerRank)
	r.Get("/ladder", s.handleLadder)

	r.Route("/matches", func(r chi.Router) {
		r.Post("/", s.handleCreateMatch)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetMatch)
			r.Post("/votes", s.handleRaiseVote)
			r.Post("/start", s.handleStart)
			r.Post("/maps/decide", s.handleDecideMap)
			r.Post("/finalize", s.handleFinalize)
		})
	})

	r.Post("/ballots", s.handleCast)
	r.Post("/maps/ballots", s.handleCastMap)
	r.Delete("/maps/ballots", s.handleRemoveMapBallot)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("code", code),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
