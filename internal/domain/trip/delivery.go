package trip

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ride-pool/internal/domain/request"
)

// DeliveryStatus is a delivery status as stored in the `deliveries` table.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryCancelled DeliveryStatus = "CANCELLED"
)

// Valid reports whether the status is a known delivery status constant.
func (status DeliveryStatus) Valid() bool {
	switch status {
	case DeliveryPending, DeliveryInTransit, DeliveryDelivered, DeliveryCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the DeliveryStatus.
func (status DeliveryStatus) String() string {
	return string(status)
}

// Receiver contact falls back to these when intake left the fields blank.
const (
	defaultReceiverName  = "Unknown"
	defaultReceiverPhone = "000000000"
)

// Delivery links a trip to a parcel request. Parcels ride along without
// consuming seats.
type Delivery struct {
	ID              string
	TripID          string
	SenderRef       string
	ReceiverName    string
	ReceiverPhone   string
	ItemDescription string
	WeightKG        float64
	InsuranceAmount float64
	DeliveryCode    string
	Status          DeliveryStatus
	CreatedAt       time.Time
}

var ErrNotADelivery = errors.New("request is not a delivery")

// NewDelivery creates an IN_TRANSIT delivery for a pending parcel request,
// filling receiver defaults for fields intake left empty.
func NewDelivery(tripID string, pending *request.Pending) (*Delivery, error) {
	if tripID = strings.TrimSpace(tripID); tripID == "" {
		return nil, ErrTripRequired
	}
	if pending.Kind != request.KindDelivery {
		return nil, ErrNotADelivery
	}

	receiverName := strings.TrimSpace(pending.ReceiverName)
	if receiverName == "" {
		receiverName = defaultReceiverName
	}
	receiverPhone := strings.TrimSpace(pending.ReceiverPhone)
	if receiverPhone == "" {
		receiverPhone = defaultReceiverPhone
	}

	return &Delivery{
		TripID:          tripID,
		SenderRef:       pending.RequesterRef,
		ReceiverName:    receiverName,
		ReceiverPhone:   receiverPhone,
		ItemDescription: pending.ItemDescription,
		WeightKG:        pending.WeightKG,
		InsuranceAmount: pending.InsuranceAmount,
		DeliveryCode:    DeliveryCode(pending.ID),
		Status:          DeliveryInTransit,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// DeliveryCode derives the tracking code from the request id: "D" plus the
// id zero-padded to six digits. Ids past a million simply print wider.
func DeliveryCode(requestID int64) string {
	return fmt.Sprintf("D%06d", requestID)
}
