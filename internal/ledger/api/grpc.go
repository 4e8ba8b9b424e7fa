package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/cicconee/cbledger/internal/ledger/app"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	LedgerServiceName = "cbledger.ledger.v1.LedgerService"
	MethodWithdraw    = "/" + LedgerServiceName + "/Withdraw"
	MethodGetBalance  = "/" + LedgerServiceName + "/GetBalance"

	MetadataTraceID = "trace_id"
)

// LedgerServer uses google.protobuf.Struct messages so the service needs no generated stubs.
type LedgerServer interface {
	Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func Register(gs *grpc.Server, svc Service, log *logging.Logger) {
	gs.RegisterService(&grpc.ServiceDesc{
		ServiceName: LedgerServiceName,
		HandlerType: (*LedgerServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Withdraw", Handler: unaryStruct(MethodWithdraw, LedgerServer.Withdraw)},
			{MethodName: "GetBalance", Handler: unaryStruct(MethodGetBalance, LedgerServer.GetBalance)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "cbledger/ledger/v1/ledger.proto",
	}, NewGRPCHandler(svc, log))
}

func unaryStruct(
	fullMethod string,
	call func(LedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type GRPCHandler struct {
	svc Service
	log *logging.Logger
}

func NewGRPCHandler(svc Service, log *logging.Logger) *GRPCHandler {
	return &GRPCHandler{svc: svc, log: log}
}

func (h *GRPCHandler) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDField(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	amount, err := amountField(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out, err := h.svc.Debit(ctx, app.DebitParams{
		AccountID: accountID,
		Amount:    amount,
		TraceID:   traceIDFromMetadata(ctx),
	})
	if err != nil {
		return nil, h.grpcError("Withdraw", accountID, err)
	}

	return structpb.NewStruct(map[string]any{
		"status":            "ok",
		"balance":           out.Balance.StringFixed(ledger.AmountScale),
		"idempotency_token": out.IdempotencyToken,
	})
}

func (h *GRPCHandler) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := accountIDField(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	bal, err := h.svc.GetBalance(ctx, accountID)
	if err != nil {
		return nil, h.grpcError("GetBalance", accountID, err)
	}

	return structpb.NewStruct(map[string]any{
		"account_id": float64(accountID),
		"balance":    bal.StringFixed(ledger.AmountScale),
	})
}

func (h *GRPCHandler) grpcError(method string, accountID int64, err error) error {
	switch {
	case errors.Is(err, app.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, "invalid_request")
	case errors.Is(err, app.ErrAccountNotFound):
		return status.Error(codes.NotFound, "account_not_found")
	case errors.Is(err, app.ErrInsufficientFunds):
		return status.Error(codes.FailedPrecondition, "insufficient_funds")
	default:
		h.log.Error(method+" failed", "account_id", accountID, "err", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func accountIDField(req *structpb.Struct) (int64, error) {
	v, ok := req.GetFields()["account_id"]
	if !ok {
		return 0, errors.New("account_id is required")
	}

	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != float64(int64(n)) {
			return 0, errors.New("account_id must be an integer")
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		id, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, errors.New("account_id must be an integer")
		}
		return id, nil
	default:
		return 0, errors.New("account_id must be an integer")
	}
}

// amountField accepts a decimal string ("40.00") or a number.
func amountField(req *structpb.Struct) (decimal.Decimal, error) {
	v, ok := req.GetFields()["amount"]
	if !ok {
		return decimal.Zero, errors.New("amount is required")
	}

	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return decimal.Zero, errors.New("amount is not a decimal")
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue), nil
	default:
		return decimal.Zero, errors.New("amount is not a decimal")
	}
}

func traceIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(MetadataTraceID); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
