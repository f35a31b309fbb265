package movement

import "strings"

// Request reasons accepted by the classifier.
const (
	ReasonMSL         = "msl"
	ReasonBulk        = "bulk"
	ReasonDefect      = "defect"
	ReasonUnused      = "unused"
	ReasonPickup      = "pickup"
	ReasonReturn      = "return"
	ReasonReplacement = "replacement"
)

// Classify maps a request reason and the source location kind to a
// business intent. It is total: unknown reasons fall through to CFU.
func Classify(reason string, sourceKind LocationKind) RequestType {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case ReasonMSL, ReasonBulk:
		return RequestCFU
	case ReasonPickup:
		return RequestBranchPickup
	case ReasonDefect, ReasonUnused, ReasonReturn:
		if sourceKind == LocationTechnician {
			return RequestTechReturnDefective
		}
		return RequestASCReturnDefective
	case ReasonReplacement:
		return RequestTechIssue
	default:
		return RequestCFU
	}
}
