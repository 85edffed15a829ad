// Package verifier reads authoritative delivery verification results over gRPC.
package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GetVerificationMethod is the full gRPC method name of the lookup.
const GetVerificationMethod = "/parcelhub.verification.v1.VerificationService/GetVerification"

// StatusCompleted marks a verification whose outcome is final.
const StatusCompleted = "COMPLETED"

// Verification is the verification service's view of a delivery outcome.
type Verification struct {
	ParcelID          int64
	RiderID           *int64
	SelectedStatus    string
	CollectedAmount   *decimal.Decimal
	ExpectedCODAmount *decimal.Decimal
	Status            string
	VerifiedAt        time.Time
}

// Completed reports whether the outcome is final.
func (v Verification) Completed() bool { return v.Status == StatusCompleted }

// GRPCGateway is a verification gateway backed by gRPC.
type GRPCGateway struct {
	conn grpc.ClientConnInterface
}

// NewGRPCGateway creates a verification gateway backed by gRPC.
func NewGRPCGateway(conn grpc.ClientConnInterface) *GRPCGateway {
	if conn == nil {
		return nil
	}
	return &GRPCGateway{conn: conn}
}

// GetByParcelID fetches the verification of a parcel. A missing record returns (nil, nil).
func (g *GRPCGateway) GetByParcelID(ctx context.Context, parcelID int64) (*Verification, error) {
	resp := &structpb.Struct{}
	err := g.conn.Invoke(ctx, GetVerificationMethod, wrapperspb.Int64(parcelID), resp)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verification gateway: GetVerification: %w", err)
	}
	v, err := mapStruct(resp)
	if err != nil {
		return nil, fmt.Errorf("verification gateway: parcel %d: %w", parcelID, err)
	}
	return &v, nil
}

func mapStruct(s *structpb.Struct) (Verification, error) {
	f := s.GetFields()
	v := Verification{
		ParcelID:       int64(f["parcel_id"].GetNumberValue()),
		SelectedStatus: f["selected_status"].GetStringValue(),
		Status:         f["status"].GetStringValue(),
	}
	if n, ok := f["rider_id"].GetKind().(*structpb.Value_NumberValue); ok {
		id := int64(n.NumberValue)
		v.RiderID = &id
	}
	var err error
	if v.CollectedAmount, err = optionalDecimal(f["collected_amount"]); err != nil {
		return Verification{}, fmt.Errorf("collected_amount: %w", err)
	}
	if v.ExpectedCODAmount, err = optionalDecimal(f["expected_cod_amount"]); err != nil {
		return Verification{}, fmt.Errorf("expected_cod_amount: %w", err)
	}
	if ts := f["verified_at"].GetStringValue(); ts != "" {
		if v.VerifiedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return Verification{}, fmt.Errorf("verified_at: %w", err)
		}
		v.VerifiedAt = v.VerifiedAt.UTC()
	}
	return v, nil
}

// optionalDecimal accepts money as a string or a number. Null or absent is nil.
func optionalDecimal(v *structpb.Value) (*decimal.Decimal, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return nil, err
		}
		return &d, nil
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(k.NumberValue)
		return &d, nil
	default:
		return nil, nil
	}
}
