package handler

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/vending-machine/internal/adapter/storage"
	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
	"github.com/rl1809/vending-machine/internal/dispatch"
)

func newTestClient(t *testing.T, mode domain.AccessMode) *MachineClient {
	t.Helper()
	logger := zaptest.NewLogger(t)
	machine := service.NewMachine(storage.NewMemoryAdapter(), mode, service.WithLogger(logger))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterMachineServer(srv, NewGRPCHandler(dispatch.New(machine), logger))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewMachineClient(conn)
}

func as(caller string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), PrincipalMetadataKey, caller)
}

func TestGRPC_ExecuteAndQuery(t *testing.T) {
	client := newTestClient(t, domain.AccessModeOwner)

	_, err := client.Instantiate(as("owner"), &InstantiateRequest{Msg: json.RawMessage(`{"chocolate_bars":20,"water_bottles":0,"chips_packets":20}`)})
	require.NoError(t, err)

	resp, err := client.Execute(as("user1"), &ExecuteRequest{Msg: json.RawMessage(`{"get_item":{"category":"chocolate bar"}}`)})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CommandID)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, domain.EventItemDispensed, resp.Events[0].Type)

	out, err := client.Query(context.Background(), &QueryRequest{Msg: json.RawMessage(`{"items_count":{}}`)})
	require.NoError(t, err)
	var counts map[string]uint64
	require.NoError(t, json.Unmarshal(out.Data, &counts))
	assert.Equal(t, uint64(19), counts["chocolate_bars"])
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client := newTestClient(t, domain.AccessModeOwner)

	_, err := client.Execute(as("user"), &ExecuteRequest{Msg: json.RawMessage(`{"leave":{}}`)})
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	_, err = client.Query(context.Background(), &QueryRequest{Msg: json.RawMessage(`{"items_count":{}}`)})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.Instantiate(context.Background(), &InstantiateRequest{Msg: json.RawMessage(`{}`)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "missing caller metadata")

	_, err = client.Instantiate(as("owner"), &InstantiateRequest{Msg: json.RawMessage(`{"water":1}`)})
	require.NoError(t, err)

	var trailer metadata.MD
	_, err = client.Execute(as("admin1"), &ExecuteRequest{Msg: json.RawMessage(`{"refill":{"number":40}}`)}, grpc.Trailer(&trailer))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, []string{TextCodeUnauthorized}, trailer.Get(TextCodeTrailerKey))

	_, err = client.Execute(as("user"), &ExecuteRequest{Msg: json.RawMessage(`{"get_item":{"category":"water","amount":2}}`)})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.Execute(as("owner"), &ExecuteRequest{Msg: json.RawMessage(`{"refill":{"number":18446744073709551615}}`)})
	assert.Equal(t, codes.OutOfRange, status.Code(err))
}

func TestMapError_Table(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		code     codes.Code
		textCode string
	}{
		{domain.ErrUnknownCategory, 400, codes.InvalidArgument, TextCodeUnknownCategory},
		{domain.ErrInsufficientStock, 409, codes.FailedPrecondition, TextCodeInsufficientStock},
		{domain.ErrRefillOverflow, 422, codes.OutOfRange, TextCodeRefillOverflow},
		{domain.ErrUnauthorized, 403, codes.PermissionDenied, TextCodeUnauthorized},
		{domain.ErrAlreadyExists, 409, codes.AlreadyExists, TextCodeAlreadyExists},
		{domain.ErrStorageFailure, 503, codes.Unavailable, TextCodeStorageFailure},
		{domain.ErrNotInitialized, 404, codes.FailedPrecondition, TextCodeNotInitialized},
		{domain.ErrAlreadyInitialized, 409, codes.AlreadyExists, TextCodeAlreadyInitialized},
		{domain.ErrInvalidPrincipal, 400, codes.InvalidArgument, TextCodeBadInput},
		{domain.ErrInvalidMessage, 400, codes.InvalidArgument, TextCodeBadInput},
		{domain.ErrUnsupportedCommand, 400, codes.Unimplemented, TextCodeUnsupported},
		{assert.AnError, 500, codes.Internal, TextCodeInternal},
	}
	for _, tc := range cases {
		rich, code := mapError(tc.err)
		assert.Equal(t, tc.status, rich.Code, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.textCode, rich.TextCode, tc.err.Error())
	}
}
