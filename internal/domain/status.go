package domain

// ParcelStatus represents the lifecycle status of a parcel.
type ParcelStatus string

// List of possible parcel statuses
const (
	StatusPending              ParcelStatus = "PENDING"
	StatusPickedUp             ParcelStatus = "PICKED_UP"
	StatusInHub                ParcelStatus = "IN_HUB"
	StatusInTransit            ParcelStatus = "IN_TRANSIT"
	StatusAssignedToRider      ParcelStatus = "ASSIGNED_TO_RIDER"
	StatusOutForPickup         ParcelStatus = "OUT_FOR_PICKUP"
	StatusOutForDelivery       ParcelStatus = "OUT_FOR_DELIVERY"
	StatusDelivered            ParcelStatus = "DELIVERED"
	StatusPartialDelivery      ParcelStatus = "PARTIAL_DELIVERY"
	StatusExchange             ParcelStatus = "EXCHANGE"
	StatusPaidReturn           ParcelStatus = "PAID_RETURN"
	StatusReturned             ParcelStatus = "RETURNED"
	StatusDeliveryRescheduled  ParcelStatus = "DELIVERY_RESCHEDULED"
	StatusFailedDelivery       ParcelStatus = "FAILED_DELIVERY"
	StatusReturnedToHub        ParcelStatus = "RETURNED_TO_HUB"
	StatusReturnToMerchant     ParcelStatus = "RETURN_TO_MERCHANT"
	StatusAssignedToThirdParty ParcelStatus = "ASSIGNED_TO_THIRD_PARTY"
	StatusCancelled            ParcelStatus = "CANCELLED"
)

var allParcelStatuses = [...]ParcelStatus{
	StatusPending, StatusPickedUp, StatusInHub, StatusInTransit, StatusAssignedToRider,
	StatusOutForPickup, StatusOutForDelivery, StatusDelivered, StatusPartialDelivery,
	StatusExchange, StatusPaidReturn, StatusReturned, StatusDeliveryRescheduled,
	StatusFailedDelivery, StatusReturnedToHub, StatusReturnToMerchant,
	StatusAssignedToThirdParty, StatusCancelled,
}

// transitions is the only place where legal status edges are defined.
var transitions = map[ParcelStatus][]ParcelStatus{
	StatusPending:         {StatusOutForPickup, StatusPickedUp, StatusInHub, StatusCancelled},
	StatusOutForPickup:    {StatusPickedUp, StatusCancelled},
	StatusPickedUp:        {StatusInHub, StatusCancelled},
	StatusInHub:           {StatusAssignedToRider, StatusInTransit, StatusAssignedToThirdParty},
	StatusInTransit:       {StatusInHub},
	StatusAssignedToRider: {StatusOutForDelivery},
	StatusOutForDelivery: {
		StatusDelivered, StatusPartialDelivery, StatusExchange, StatusPaidReturn,
		StatusReturned, StatusDeliveryRescheduled, StatusFailedDelivery,
	},
	StatusDeliveryRescheduled: {StatusInHub},
	StatusFailedDelivery:      {StatusReturnedToHub},
	StatusReturnToMerchant:    {StatusPickedUp, StatusInHub},
}

// preDispatch are the forward-flow statuses a parcel holds before it goes out
// for delivery.
var preDispatch = map[ParcelStatus]bool{
	StatusPending:         true,
	StatusOutForPickup:    true,
	StatusPickedUp:        true,
	StatusInHub:           true,
	StatusInTransit:       true,
	StatusAssignedToRider: true,
}

// returnSources are the statuses a return-to-merchant parcel may be spawned from.
var returnSources = map[ParcelStatus]bool{
	StatusPartialDelivery: true,
	StatusExchange:        true,
	StatusPaidReturn:      true,
	StatusReturned:        true,
	StatusReturnedToHub:   true,
}

// Valid checks if the ParcelStatus is known.
func (s ParcelStatus) Valid() bool {
	for _, v := range allParcelStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func CanTransition(from, to ParcelStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns a copy of the statuses reachable from s in one step.
func NextStatuses(s ParcelStatus) []ParcelStatus {
	return append([]ParcelStatus(nil), transitions[s]...)
}

// AllParcelStatuses returns every known status.
func AllParcelStatuses() []ParcelStatus {
	return append([]ParcelStatus(nil), allParcelStatuses[:]...)
}

// IsDeliveryOutcome reports whether s can be selected at delivery verification.
func (s ParcelStatus) IsDeliveryOutcome() bool {
	return CanTransition(StatusOutForDelivery, s)
}

// FreezesCollectedAmount reports whether reaching s fixes cod_collected_amount.
func (s ParcelStatus) FreezesCollectedAmount() bool {
	return s.IsDeliveryOutcome() && s != StatusDeliveryRescheduled && s != StatusFailedDelivery
}

// IsFinancialOutcome reports whether a parcel in s carries a booked financial result.
func (s ParcelStatus) IsFinancialOutcome() bool {
	return s.FreezesCollectedAmount()
}

// AwaitsDispatch reports whether a parcel in s has not yet gone out for delivery.
func (s ParcelStatus) AwaitsDispatch() bool {
	return preDispatch[s]
}

// CanSpawnReturn reports whether a return-to-merchant parcel may be created from s.
func (s ParcelStatus) CanSpawnReturn() bool {
	return returnSources[s]
}

// StatusesInto returns every status that has an edge into to.
func StatusesInto(to ParcelStatus) []ParcelStatus {
	var out []ParcelStatus
	for _, from := range allParcelStatuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}
