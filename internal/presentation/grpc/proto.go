package grpc

// proto.go defines the RiskService server interface and descriptor by hand.
// Messages travel as JSON through the codec registered below; clients select
// it with grpc.CallContentSubtype(JSONCodecName).

import (
	"context"
	"encoding/json"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// JSONCodecName is the content subtype of the RiskService messages.
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// RiskServiceServer is the server API for RiskService.
type RiskServiceServer interface {
	EvaluateTransaction(context.Context, *EvaluateTransactionRequest) (*EvaluateTransactionResponse, error)
	RecordCompletedTransaction(context.Context, *RecordCompletedTransactionRequest) (*RecordCompletedTransactionResponse, error)
	GetDecision(context.Context, *GetDecisionRequest) (*GetDecisionResponse, error)
	mustEmbedUnimplementedRiskServiceServer()
}

// UnimplementedRiskServiceServer provides forward-compatible default implementations.
type UnimplementedRiskServiceServer struct{}

func (UnimplementedRiskServiceServer) EvaluateTransaction(context.Context, *EvaluateTransactionRequest) (*EvaluateTransactionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EvaluateTransaction not implemented")
}
func (UnimplementedRiskServiceServer) RecordCompletedTransaction(context.Context, *RecordCompletedTransactionRequest) (*RecordCompletedTransactionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RecordCompletedTransaction not implemented")
}
func (UnimplementedRiskServiceServer) GetDecision(context.Context, *GetDecisionRequest) (*GetDecisionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetDecision not implemented")
}
func (UnimplementedRiskServiceServer) mustEmbedUnimplementedRiskServiceServer() {}

// RegisterRiskServiceServer registers the RiskServiceServer with the gRPC server.
func RegisterRiskServiceServer(s grpclib.ServiceRegistrar, srv RiskServiceServer) {
	s.RegisterService(&RiskService_ServiceDesc, srv)
}

// RiskService_ServiceDesc is the grpc.ServiceDesc for RiskService.
var RiskService_ServiceDesc = grpclib.ServiceDesc{
	ServiceName: "orca.risk.v1.RiskService",
	HandlerType: (*RiskServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "EvaluateTransaction", Handler: _RiskService_EvaluateTransaction_Handler},
		{MethodName: "RecordCompletedTransaction", Handler: _RiskService_RecordCompletedTransaction_Handler},
		{MethodName: "GetDecision", Handler: _RiskService_GetDecision_Handler},
	},
	Streams: []grpclib.StreamDesc{},
}

func _RiskService_EvaluateTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(EvaluateTransactionRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskServiceServer).EvaluateTransaction(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: "/orca.risk.v1.RiskService/EvaluateTransaction"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskServiceServer).EvaluateTransaction(ctx, req.(*EvaluateTransactionRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _RiskService_RecordCompletedTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(RecordCompletedTransactionRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskServiceServer).RecordCompletedTransaction(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: "/orca.risk.v1.RiskService/RecordCompletedTransaction"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskServiceServer).RecordCompletedTransaction(ctx, req.(*RecordCompletedTransactionRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _RiskService_GetDecision_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetDecisionRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskServiceServer).GetDecision(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: "/orca.risk.v1.RiskService/GetDecision"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskServiceServer).GetDecision(ctx, req.(*GetDecisionRequest))
	}
	return interceptor(ctx, req, info, handler)
}
