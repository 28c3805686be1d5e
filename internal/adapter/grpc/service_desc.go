package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "finops.v1.FinOpsService"

// FinOpsServiceServer is the server API for the FinOpsService.
// Payloads are google.protobuf.Struct documents; see dto.go for their fields.
type FinOpsServiceServer interface {
	ClassifyAndFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EvaluateRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AdvanceReminderState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RunReminderCycle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ReportReminderOutcome(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ApplyPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCashMovements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetNetMargin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SaveRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListReminderHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv FinOpsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, method unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return method(srv.(FinOpsServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return method(srv.(FinOpsServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for FinOpsService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FinOpsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ClassifyAndFilter", FinOpsServiceServer.ClassifyAndFilter),
		unaryHandler("EvaluateRules", FinOpsServiceServer.EvaluateRules),
		unaryHandler("AdvanceReminderState", FinOpsServiceServer.AdvanceReminderState),
		unaryHandler("RunReminderCycle", FinOpsServiceServer.RunReminderCycle),
		unaryHandler("ReportReminderOutcome", FinOpsServiceServer.ReportReminderOutcome),
		unaryHandler("ApplyPayment", FinOpsServiceServer.ApplyPayment),
		unaryHandler("ListCashMovements", FinOpsServiceServer.ListCashMovements),
		unaryHandler("GetNetMargin", FinOpsServiceServer.GetNetMargin),
		unaryHandler("GetOverview", FinOpsServiceServer.GetOverview),
		unaryHandler("ListRules", FinOpsServiceServer.ListRules),
		unaryHandler("SaveRule", FinOpsServiceServer.SaveRule),
		unaryHandler("DeleteRule", FinOpsServiceServer.DeleteRule),
		unaryHandler("ListReminderHistory", FinOpsServiceServer.ListReminderHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "finops/v1/finops.proto",
}

// RegisterFinOpsServiceServer registers srv with the gRPC server
func RegisterFinOpsServiceServer(s grpc.ServiceRegistrar, srv FinOpsServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
