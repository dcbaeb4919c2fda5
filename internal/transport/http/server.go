// Package http exposes price quotes over a small JSON API.
package http

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/model"
)

// Pricer resolves price quotes.
type Pricer interface {
	Quote(ctx context.Context, pool common.Address) (model.PriceQuote, error)
	GetPrice(ctx context.Context, pool, reference common.Address) (model.PriceQuote, error)
}

type Server struct {
	app     *fiber.App
	pricer  Pricer
	timeout time.Duration
	logger  *zap.Logger
}

type priceRequest struct {
	Pool      string `query:"pool"`
	Reference string `query:"reference"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hop     string `json:"hop,omitempty"`
}

// NewServer wires the routes. requestTimeout bounds each quote; zero disables it.
func NewServer(pricer Pricer, requestTimeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pricer:  pricer,
		timeout: requestTimeout,
		logger:  logger,
	}
	s.app = fiber.New(fiber.Config{ErrorHandler: s.handleError})
	s.app.Get("/ping", func(c fiber.Ctx) error {
		return c.SendString("pong")
	})
	s.app.Get("/price", s.handlePrice)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handlePrice(c fiber.Ctx) error {
	var req priceRequest
	if err := c.Bind().Query(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if req.Pool == "" {
		return fiber.NewError(fiber.StatusBadRequest, "pool is required")
	}

	pool, err := model.ParseAddress(req.Pool)
	if err != nil {
		return err
	}

	var ctx context.Context = c.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var quote model.PriceQuote
	if req.Reference == "" {
		quote, err = s.pricer.Quote(ctx, pool)
	} else {
		var reference common.Address
		if reference, err = model.ParseAddress(req.Reference); err != nil {
			return err
		}
		quote, err = s.pricer.GetPrice(ctx, pool, reference)
	}
	if err != nil {
		return err
	}
	return c.JSON(quote)
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(errorResponse{Error: "bad request", Message: fiberErr.Message})
	}

	status := StatusFor(err)
	resp := errorResponse{Error: "internal", Message: err.Error()}
	if kind := apperrors.Kind(err); kind != nil {
		resp.Error = kind.Error()
	}
	if hop, ok := apperrors.FailedHop(err); ok {
		resp.Hop = string(hop)
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("price request failed", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug("price request rejected", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}
	return c.Status(status).JSON(resp)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch apperrors.Kind(err) {
	case apperrors.ErrInvalidIdentifier:
		return fiber.StatusBadRequest
	case apperrors.ErrEmptyPool, apperrors.ErrContractMismatch, apperrors.ErrUnroutable:
		return fiber.StatusUnprocessableEntity
	case apperrors.ErrRemoteUnavailable:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
