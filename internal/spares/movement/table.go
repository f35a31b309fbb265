package movement

// End names which end of a movement the ledger effect applies to.
type End string

const (
	AtSource      End = "source"
	AtDestination End = "destination"
)

// Effect is the fixed ledger impact of a movement type. Bucket and
// Operation are never computed ad hoc: a movement type always has the
// same effect regardless of caller.
//
// SAP-relevant outbound legs build the destination's IN_TRANSIT bucket;
// the sending side's decrement lives in SAP, not in this ledger. The
// matching receipt leg sets DrainsInTransit so the processor settles the
// in-transit build-up when crediting the final bucket.
type Effect struct {
	Bucket          Bucket
	Operation       Operation
	At              End
	SAPRelevant     bool
	DrainsInTransit bool
}

// Table maps business intents to their ordered movement legs and movement
// types to their ledger effects. It is immutable after construction and
// passed explicitly to the components that consult it.
type Table struct {
	effects map[Type]Effect
	legs    map[RequestType][]Type
}

// NewTable builds a table from explicit maps. Tests use this to substitute
// alternate tables; production code uses DefaultTable.
func NewTable(effects map[Type]Effect, legs map[RequestType][]Type) *Table {
	e := make(map[Type]Effect, len(effects))
	for k, v := range effects {
		e[k] = v
	}
	l := make(map[RequestType][]Type, len(legs))
	for k, v := range legs {
		cp := make([]Type, len(v))
		copy(cp, v)
		l[k] = cp
	}
	return &Table{effects: e, legs: l}
}

// DefaultTable returns the production movement table.
func DefaultTable() *Table {
	return NewTable(
		map[Type]Effect{
			FillupDispatch:        {Bucket: BucketInTransit, Operation: OperationIncrease, At: AtDestination, SAPRelevant: true},
			FillupReceipt:         {Bucket: BucketGood, Operation: OperationIncrease, At: AtDestination, DrainsInTransit: true},
			TechIssueOut:          {Bucket: BucketGood, Operation: OperationDecrease, At: AtSource},
			TechIssueIn:           {Bucket: BucketGood, Operation: OperationIncrease, At: AtDestination},
			TechReturnDefective:   {Bucket: BucketDefective, Operation: OperationIncrease, At: AtDestination},
			ASCReturnDefectiveOut: {Bucket: BucketInTransit, Operation: OperationIncrease, At: AtDestination, SAPRelevant: true},
			ASCReturnDefectiveIn:  {Bucket: BucketDefective, Operation: OperationIncrease, At: AtDestination, DrainsInTransit: true},
			ConsumptionIW:         {Bucket: BucketGood, Operation: OperationDecrease, At: AtSource},
			ConsumptionOOW:        {Bucket: BucketGood, Operation: OperationDecrease, At: AtSource},
		},
		map[RequestType][]Type{
			RequestCFU:                 {FillupDispatch, FillupReceipt},
			RequestTechIssue:           {TechIssueOut, TechIssueIn},
			RequestTechReturnDefective: {TechReturnDefective},
			RequestASCReturnDefective:  {ASCReturnDefectiveOut, ASCReturnDefectiveIn},
			RequestASCReturnExcess:     {ASCReturnDefectiveOut, ASCReturnDefectiveIn},
			RequestBranchPickup:        {FillupDispatch, FillupReceipt},
		},
	)
}

// Effect returns the ledger effect for a movement type.
func (t *Table) Effect(mt Type) (Effect, bool) {
	e, ok := t.effects[mt]
	return e, ok
}

// Legs returns the ordered movement types for a business intent. The
// returned slice is a copy.
func (t *Table) Legs(rt RequestType) ([]Type, bool) {
	legs, ok := t.legs[rt]
	if !ok {
		return nil, false
	}
	cp := make([]Type, len(legs))
	copy(cp, legs)
	return cp, true
}

// SAPRelevant reports whether a movement type must be synced downstream.
func (t *Table) SAPRelevant(mt Type) bool {
	return t.effects[mt].SAPRelevant
}
