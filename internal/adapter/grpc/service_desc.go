package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the portfolio service
const ServiceName = "investtrack.v1.PortfolioService"

// PortfolioServiceServer is the server API of investtrack.v1.PortfolioService.
// Every method takes and returns a google.protobuf.Struct.
type PortfolioServiceServer interface {
	AddAcquisition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAcquisitions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAllocation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTopMovers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAnalytics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordPrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConvertCurrency(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAsset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchAssets(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PortfolioServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// FullMethod returns the gRPC method path of a PortfolioService method
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler(method string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(PortfolioServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes investtrack.v1.PortfolioService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PortfolioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("AddAcquisition", PortfolioServiceServer.AddAcquisition),
		unaryHandler("ListAcquisitions", PortfolioServiceServer.ListAcquisitions),
		unaryHandler("GetSummary", PortfolioServiceServer.GetSummary),
		unaryHandler("GetHistory", PortfolioServiceServer.GetHistory),
		unaryHandler("GetAllocation", PortfolioServiceServer.GetAllocation),
		unaryHandler("GetTopMovers", PortfolioServiceServer.GetTopMovers),
		unaryHandler("GetAnalytics", PortfolioServiceServer.GetAnalytics),
		unaryHandler("RecordPrice", PortfolioServiceServer.RecordPrice),
		unaryHandler("ConvertCurrency", PortfolioServiceServer.ConvertCurrency),
		unaryHandler("GetAsset", PortfolioServiceServer.GetAsset),
		unaryHandler("SearchAssets", PortfolioServiceServer.SearchAssets),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "investtrack/v1/portfolio.proto",
}

// RegisterPortfolioServiceServer registers srv on s
func RegisterPortfolioServiceServer(s grpc.ServiceRegistrar, srv PortfolioServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
