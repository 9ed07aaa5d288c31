package grpc

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// stringField returns a trimmed string field, "" when absent
func stringField(in *structpb.Struct, name string) string {
	return strings.TrimSpace(in.GetFields()[name].GetStringValue())
}

// decimalField parses a decimal sent as a string (or a number).
// An absent field yields fallback.
func decimalField(in *structpb.Struct, name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return fallback, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	case *structpb.Value_StringValue:
		if strings.TrimSpace(kind.StringValue) == "" {
			return fallback, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
		}
		return d, nil
	default:
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format", name)
	}
}

func uuidField(in *structpb.Struct, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(in, name))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

// dateField accepts YYYY-MM-DD or an RFC 3339 timestamp
func dateField(in *structpb.Struct, name string) (time.Time, error) {
	raw := stringField(in, name)
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(DateLayout, raw); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: expected %s", name, DateLayout)
	}
	return ts.UTC(), nil
}

// intField parses a whole number within int32 range; an absent field yields 0
func intField(in *structpb.Struct, name string) (int, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, nil
	}
	kind, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s format: expected a number", name)
	}
	n := kind.NumberValue
	if math.IsNaN(n) || n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s: %v is not a whole number", name, n)
	}
	return int(n), nil
}

func stringListField(in *structpb.Struct, name string) []string {
	values := in.GetFields()[name].GetListValue().GetValues()
	list := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v.GetStringValue()); s != "" {
			list = append(list, s)
		}
	}
	return list
}

func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func lotToMap(lot *domain.AcquisitionLot) map[string]interface{} {
	tags := make([]interface{}, 0, len(lot.Tags))
	for _, tag := range lot.Tags {
		tags = append(tags, tag)
	}
	return map[string]interface{}{
		"id":               lot.ID.String(),
		"user_id":          lot.UserID,
		"asset_id":         lot.AssetID.String(),
		"quantity":         lot.Quantity.String(),
		"unit_price":       lot.UnitPrice.String(),
		"currency":         lot.Currency,
		"fee":              lot.Fee.String(),
		"cost":             lot.Cost().String(),
		"acquisition_date": lot.AcquisitionDate.Format(DateLayout),
		"notes":            lot.Notes,
		"tags":             tags,
		"created_at":       lot.CreatedAt.Format(time.RFC3339),
	}
}

func assetToMap(a *domain.Asset) map[string]interface{} {
	return map[string]interface{}{
		"id":          a.ID.String(),
		"symbol":      a.Symbol,
		"name":        a.Name,
		"asset_type":  string(a.Type),
		"currency":    a.Currency,
		"description": a.Description,
	}
}

func snapshotToMap(s *domain.PriceSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"id":       s.ID.String(),
		"asset_id": s.AssetID.String(),
		"price":    s.Price.String(),
		"currency": s.Currency,
		"as_of":    s.AsOf.Format(time.RFC3339),
		"source":   s.Source,
	}
}

func summaryToMap(s *domain.PortfolioSummary) map[string]interface{} {
	return map[string]interface{}{
		"currency":              s.Currency,
		"total_value":           s.TotalValue.String(),
		"cost_basis":            s.CostBasis.String(),
		"total_fees":            s.TotalFees.String(),
		"unrealized_pl":         s.UnrealizedPL.String(),
		"unrealized_pl_percent": s.UnrealizedPLPercent.String(),
		"today_change_percent":  s.TodayChangePercent.String(),
		"estimated_proceeds":    s.EstimatedProceeds.String(),
		"fx_influence":          s.FXInfluence.String(),
		"status":                s.Status,
	}
}

func historyToList(points []domain.HistoryPoint) []interface{} {
	list := make([]interface{}, 0, len(points))
	for _, p := range points {
		list = append(list, map[string]interface{}{
			"date":           p.Date.Format(DateLayout),
			"value":          p.Value.String(),
			"change":         p.Change.String(),
			"change_percent": p.ChangePercent.String(),
		})
	}
	return list
}

func allocationToList(slices []domain.AllocationSlice) []interface{} {
	list := make([]interface{}, 0, len(slices))
	for _, s := range slices {
		list = append(list, map[string]interface{}{
			"asset_type": string(s.AssetType),
			"name":       s.Name,
			"value":      s.Value.String(),
			"percentage": s.Percentage.String(),
			"color":      s.Color,
		})
	}
	return list
}

func moversToList(movers []domain.TopMover) []interface{} {
	list := make([]interface{}, 0, len(movers))
	for _, m := range movers {
		list = append(list, map[string]interface{}{
			"asset_id":       m.AssetID.String(),
			"symbol":         m.Symbol,
			"name":           m.Name,
			"current_price":  m.CurrentPrice.String(),
			"value":          m.Value.String(),
			"change":         m.Change.String(),
			"change_percent": m.ChangePercent.String(),
			"direction":      m.Direction,
		})
	}
	return list
}

func analyticsToMap(b *domain.AnalyticsBundle) map[string]interface{} {
	return map[string]interface{}{
		"period":               string(b.Period),
		"history":              historyToList(b.History),
		"allocation":           allocationToList(b.Allocation),
		"top_movers":           moversToList(b.TopMovers),
		"total_return":         b.TotalReturn.String(),
		"total_return_percent": b.TotalReturnPercent.String(),
		"volatility":           b.Volatility.String(),
		"sharpe_ratio":         b.SharpeRatio.String(),
		"max_drawdown":         b.MaxDrawdown.String(),
	}
}

func assetsToList(assets []*domain.Asset) []interface{} {
	list := make([]interface{}, 0, len(assets))
	for _, a := range assets {
		list = append(list, assetToMap(a))
	}
	return list
}

func lotsToList(lots []*domain.AcquisitionLot) []interface{} {
	list := make([]interface{}, 0, len(lots))
	for _, l := range lots {
		list = append(list, lotToMap(l))
	}
	return list
}

func periodField(in *structpb.Struct) (domain.Period, error) {
	period, err := domain.ParsePeriod(stringField(in, "period"))
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return period, nil
}

func assetTypeField(in *structpb.Struct, name string) (domain.AssetType, error) {
	raw := stringField(in, name)
	if raw == "" {
		return "", nil
	}
	t, err := domain.ParseAssetType(raw)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid %s: %v", name, err)
	}
	return t, nil
}
