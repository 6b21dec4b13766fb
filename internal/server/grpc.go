package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/entity"
	"github.com/joseph-ayodele/inspection-reports/internal/export"
	"github.com/joseph-ayodele/inspection-reports/internal/sites"
)

const (
	ReportServiceName    = "inspection.v1.ReportService"
	renderReportFullName = "/" + ReportServiceName + "/RenderReport"
)

// ReportServer renders a JSON-shaped report (the same document DecodeReport
// accepts) into PDF bytes.
type ReportServer interface {
	RenderReport(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error)
}

// ReportServiceDesc describes the service for grpc.Server.RegisterService. The
// messages are well-known types, so no generated code is involved.
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: ReportServiceName,
	HandlerType: (*ReportServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RenderReport", Handler: renderReportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inspection/v1/report.proto",
}

func renderReportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServer).RenderReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: renderReportFullName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportServer).RenderReport(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func RegisterReportServiceServer(s grpc.ServiceRegistrar, srv ReportServer) {
	s.RegisterService(&ReportServiceDesc, srv)
}

// ReportClient calls ReportService on a connection.
type ReportClient struct {
	cc grpc.ClientConnInterface
}

func NewReportClient(cc grpc.ClientConnInterface) *ReportClient {
	return &ReportClient{cc: cc}
}

func (c *ReportClient) RenderReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, renderReportFullName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type ReportService struct {
	exporter *export.Service
	catalog  *sites.Catalog
	logger   *slog.Logger
}

var _ ReportServer = (*ReportService)(nil)

func NewReportService(exporter *export.Service, catalog *sites.Catalog, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{exporter: exporter, catalog: catalog, logger: logger}
}

func (s *ReportService) RenderReport(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if req == nil || len(req.GetFields()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "report is required")
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode report: %v", err)
	}

	var known []string
	if s.catalog.Len() > 0 {
		known = s.catalog.IDs()
	}
	report, err := entity.DecodeReport(raw, known)
	if err != nil {
		s.logger.Warn("grpc.render.invalid", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, status.Errorf(codes.InvalidArgument, "invalid report: %v", err)
	}

	pdf, err := s.exporter.RenderPDF(ctx, report)
	if err != nil {
		return nil, common.GRPCError(err)
	}
	return wrapperspb.Bytes(pdf), nil
}

// NewGRPCServer builds a server with the report service, health (SERVING) and
// reflection registered.
func NewGRPCServer(svc ReportServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs := grpc.NewServer(opts...)
	RegisterReportServiceServer(gs, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ReportServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(gs)
	return gs, hs
}

// loggingInterceptor tags the context with the caller's x-request-id (or a new
// one) and logs every unary call.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id = newRequestID()
		}
		ctx = common.WithRequestID(ctx, id)

		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"request_id", id,
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
