// Package movement holds the pure vocabulary of the stock engine: the
// bucket/operation enums, the business-intent and movement-type enums,
// the classifier that derives intent from a request reason, and the
// lookup table that fixes each movement type's ledger effect.
package movement

// Bucket is one of the three inventory states a spare can be in at a location.
type Bucket string

const (
	BucketGood      Bucket = "GOOD"
	BucketDefective Bucket = "DEFECTIVE"
	BucketInTransit Bucket = "IN_TRANSIT"
)

// Operation is the direction of a ledger mutation.
type Operation string

const (
	OperationIncrease Operation = "INCREASE"
	OperationDecrease Operation = "DECREASE"
)

// Type is a physical movement type. These are wire vocabulary: the exact
// strings appear in movement records and stock events.
type Type string

const (
	FillupDispatch        Type = "FILLUP_DISPATCH"
	FillupReceipt         Type = "FILLUP_RECEIPT"
	TechIssueOut          Type = "TECH_ISSUE_OUT"
	TechIssueIn           Type = "TECH_ISSUE_IN"
	TechReturnDefective   Type = "TECH_RETURN_DEFECTIVE"
	ASCReturnDefectiveOut Type = "ASC_RETURN_DEFECTIVE_OUT"
	ASCReturnDefectiveIn  Type = "ASC_RETURN_DEFECTIVE_IN"
	ConsumptionIW         Type = "CONSUMPTION_IW"
	ConsumptionOOW        Type = "CONSUMPTION_OOW"
)

// RequestType is the business intent behind a spare request.
type RequestType string

const (
	RequestCFU                 RequestType = "CFU"
	RequestTechIssue           RequestType = "TECH_ISSUE"
	RequestTechReturnDefective RequestType = "TECH_RETURN_DEFECTIVE"
	RequestASCReturnDefective  RequestType = "ASC_RETURN_DEFECTIVE"
	RequestASCReturnExcess     RequestType = "ASC_RETURN_EXCESS"
	RequestBranchPickup        RequestType = "BRANCH_PICKUP"
)

// LocationKind identifies the kind of party holding stock.
type LocationKind string

const (
	LocationWarehouse     LocationKind = "warehouse"
	LocationPlant         LocationKind = "plant"
	LocationServiceCenter LocationKind = "service_center"
	LocationTechnician    LocationKind = "technician"
	LocationCustomer      LocationKind = "customer"
	LocationSupplier      LocationKind = "supplier"
	LocationBranch        LocationKind = "branch"
)

// ValidLocationKind reports whether s is a known location kind.
func ValidLocationKind(s string) bool {
	switch LocationKind(s) {
	case LocationWarehouse, LocationPlant, LocationServiceCenter,
		LocationTechnician, LocationCustomer, LocationSupplier, LocationBranch:
		return true
	}
	return false
}

// MovementStatus is the lifecycle state of a stock movement record.
type MovementStatus string

const (
	MovementPending   MovementStatus = "pending"
	MovementInTransit MovementStatus = "in_transit"
	MovementCompleted MovementStatus = "completed"
	MovementCancelled MovementStatus = "cancelled"
)

// RequestStatus is the lifecycle state of a spare request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestVerified  RequestStatus = "verified"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to RequestStatus) bool {
	switch from {
	case RequestPending:
		return to == RequestApproved || to == RequestCancelled
	case RequestApproved:
		return to == RequestVerified || to == RequestCompleted || to == RequestCancelled
	case RequestVerified:
		return to == RequestCompleted
	}
	return false
}
