package grpc

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/investtrack-backend/internal/domain"
	"github.com/simaogato/investtrack-backend/internal/usecase/asset"
	"github.com/simaogato/investtrack-backend/internal/usecase/currency"
	"github.com/simaogato/investtrack-backend/internal/usecase/portfolio"
	"github.com/simaogato/investtrack-backend/internal/usecase/pricing"
)

// Server implements the PortfolioService gRPC server
type Server struct {
	PortfolioService *portfolio.Service
	PricingService   *pricing.Service
	AssetService     *asset.Service
	Converter        *currency.Converter

	log zerolog.Logger
}

var _ PortfolioServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	portfolioService *portfolio.Service,
	pricingService *pricing.Service,
	assetService *asset.Service,
	converter *currency.Converter,
	log zerolog.Logger,
) *Server {
	return &Server{
		PortfolioService: portfolioService,
		PricingService:   pricingService,
		AssetService:     assetService,
		Converter:        converter,
		log:              log.With().Str("service", "grpc").Logger(),
	}
}

// AddAcquisition handles the AddAcquisition RPC
func (s *Server) AddAcquisition(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	// Parse numeric fields
	quantity, err := decimalField(req, "quantity", decimal.Zero)
	if err != nil {
		return nil, err
	}
	unitPrice, err := decimalField(req, "unit_price", decimal.Zero)
	if err != nil {
		return nil, err
	}
	fee, err := decimalField(req, "fee", decimal.Zero)
	if err != nil {
		return nil, err
	}

	assetType, err := assetTypeField(req, "asset_type")
	if err != nil {
		return nil, err
	}
	acquisitionDate, err := dateField(req, "acquisition_date")
	if err != nil {
		return nil, err
	}

	input := portfolio.AcquisitionInput{
		Symbol:          stringField(req, "symbol"),
		Name:            stringField(req, "name"),
		AssetType:       assetType,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		Currency:        stringField(req, "currency"),
		Fee:             fee,
		AcquisitionDate: acquisitionDate,
		Notes:           stringField(req, "notes"),
		Tags:            stringListField(req, "tags"),
	}

	lot, err := s.PortfolioService.AddAcquisition(ctx, userID, input)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(lotToMap(lot))
}

// ListAcquisitions handles the ListAcquisitions RPC
func (s *Server) ListAcquisitions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	lots, err := s.PortfolioService.ListAcquisitions(ctx, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(map[string]interface{}{
		"acquisitions": lotsToList(lots),
	})
}

// GetSummary handles the GetSummary RPC
func (s *Server) GetSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.PortfolioService.GetSummary(ctx, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(summaryToMap(summary))
}

// GetHistory handles the GetHistory RPC
func (s *Server) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	period, err := periodField(req)
	if err != nil {
		return nil, err
	}

	points, err := s.PortfolioService.GetHistory(ctx, userID, period)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(map[string]interface{}{
		"period": string(period),
		"points": historyToList(points),
	})
}

// GetAllocation handles the GetAllocation RPC
func (s *Server) GetAllocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	slices, err := s.PortfolioService.GetAllocation(ctx, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(map[string]interface{}{
		"allocation": allocationToList(slices),
	})
}

// GetTopMovers handles the GetTopMovers RPC
func (s *Server) GetTopMovers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	limit, err := intField(req, "limit")
	if err != nil {
		return nil, err
	}

	movers, err := s.PortfolioService.GetTopMovers(ctx, userID, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(map[string]interface{}{
		"movers": moversToList(movers),
	})
}

// GetAnalytics handles the GetAnalytics RPC
func (s *Server) GetAnalytics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	period, err := periodField(req)
	if err != nil {
		return nil, err
	}

	bundle, err := s.PortfolioService.GetAnalytics(ctx, userID, period)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(analyticsToMap(bundle))
}

// RecordPrice handles the RecordPrice RPC
func (s *Server) RecordPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	assetID, err := uuidField(req, "asset_id")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(req, "price", decimal.Zero)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.PricingService.RecordPrice(ctx, assetID, price, stringField(req, "currency"), stringField(req, "source"))
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(snapshotToMap(snapshot))
}

// ConvertCurrency handles the ConvertCurrency RPC
func (s *Server) ConvertCurrency(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := decimalField(req, "amount", decimal.Zero)
	if err != nil {
		return nil, err
	}
	from, to := stringField(req, "from"), stringField(req, "to")
	if from == "" || to == "" {
		return nil, status.Error(codes.InvalidArgument, "from and to currencies are required")
	}

	converted := s.Converter.Convert(amount, from, to)

	return toStruct(map[string]interface{}{
		"amount":    amount.String(),
		"from":      from,
		"to":        to,
		"rate":      s.Converter.Rate(from, to).String(),
		"converted": converted.String(),
		"formatted": currency.Format(converted, to),
	})
}

// GetAsset handles the GetAsset RPC
func (s *Server) GetAsset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	assetID, err := uuidField(req, "asset_id")
	if err != nil {
		return nil, err
	}

	a, err := s.AssetService.GetByID(ctx, assetID)
	if err != nil {
		return nil, s.mapError(err)
	}

	out := assetToMap(a)
	if snapshot, err := s.PricingService.LatestSnapshot(ctx, assetID); err == nil {
		out["latest_price"] = snapshotToMap(snapshot)
	}
	return toStruct(out)
}

// SearchAssets handles the SearchAssets RPC
func (s *Server) SearchAssets(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	assetType, err := assetTypeField(req, "asset_type")
	if err != nil {
		return nil, err
	}

	assets, err := s.AssetService.Search(ctx, stringField(req, "query"), assetType, stringField(req, "currency"))
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(map[string]interface{}{
		"assets": assetsToList(assets),
	})
}

func requireUser(ctx context.Context) (string, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing user identity")
	}
	return userID, nil
}

// mapError converts domain errors to gRPC status errors
func (s *Server) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrConflict):
		return status.Errorf(codes.AlreadyExists, "%s", err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return status.Errorf(codes.Unavailable, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// Default to Internal error for unknown errors
	s.log.Error().Err(err).Msg("request failed")
	return status.Errorf(codes.Internal, "%s", err.Error())
}
