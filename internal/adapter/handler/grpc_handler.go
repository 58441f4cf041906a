package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

const (
	PrincipalMetadataKey = "x-principal"
	TextCodeTrailerKey   = "x-error-text-code"
)

var _ MachineServer = (*GRPCHandler)(nil)

type GRPCHandler struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewGRPCHandler(dispatcher Dispatcher, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{dispatcher: dispatcher, logger: logger}
}

func (h *GRPCHandler) Instantiate(ctx context.Context, req *InstantiateRequest) (*InstantiateResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, h.statusError(ctx, err)
	}
	if err := h.dispatcher.Instantiate(ctx, caller, req.Msg); err != nil {
		return nil, h.statusError(ctx, err)
	}
	return &InstantiateResponse{}, nil
}

func (h *GRPCHandler) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, h.statusError(ctx, err)
	}
	result, err := h.dispatcher.Execute(ctx, caller, req.Msg)
	if err != nil {
		return nil, h.statusError(ctx, err)
	}
	return &result, nil
}

func (h *GRPCHandler) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	resp, err := h.dispatcher.Query(ctx, req.Msg)
	if err != nil {
		return nil, h.statusError(ctx, err)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, h.statusError(ctx, fmt.Errorf("encode query response: %w", err))
	}
	return &QueryResponse{Data: data}, nil
}

func callerFromContext(ctx context.Context) (domain.Principal, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(PrincipalMetadataKey)
	if len(values) != 1 {
		return "", fmt.Errorf("%w: want one %s metadata value, got %d", domain.ErrInvalidPrincipal, PrincipalMetadataKey, len(values))
	}
	return domain.ParsePrincipal(values[0])
}

func (h *GRPCHandler) statusError(ctx context.Context, err error) error {
	rich, code := mapError(err)
	if code == codes.Internal || code == codes.Unavailable {
		h.logger.Error("rpc failed", zap.Error(err), zap.String("text_code", rich.TextCode))
	}
	_ = grpc.SetTrailer(ctx, metadata.Pairs(TextCodeTrailerKey, rich.TextCode))
	return status.Error(code, rich.Message)
}
