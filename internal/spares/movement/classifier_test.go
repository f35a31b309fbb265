package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		reason     string
		sourceKind LocationKind
		want       RequestType
	}{
		{"msl replenishment", ReasonMSL, LocationPlant, RequestCFU},
		{"bulk replenishment", ReasonBulk, LocationPlant, RequestCFU},
		{"branch pickup", ReasonPickup, LocationBranch, RequestBranchPickup},
		{"defect from technician", ReasonDefect, LocationTechnician, RequestTechReturnDefective},
		{"unused from technician", ReasonUnused, LocationTechnician, RequestTechReturnDefective},
		{"return from technician", ReasonReturn, LocationTechnician, RequestTechReturnDefective},
		{"defect from service center", ReasonDefect, LocationServiceCenter, RequestASCReturnDefective},
		{"return from warehouse", ReasonReturn, LocationWarehouse, RequestASCReturnDefective},
		{"replacement", ReasonReplacement, LocationServiceCenter, RequestTechIssue},
		{"unknown reason defaults to CFU", "something-else", LocationPlant, RequestCFU},
		{"empty reason defaults to CFU", "", "", RequestCFU},
		{"mixed case is normalized", "MSL", LocationPlant, RequestCFU},
		{"surrounding whitespace is trimmed", "  pickup  ", LocationBranch, RequestBranchPickup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.reason, tt.sourceKind)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, RequestTechReturnDefective, Classify(ReasonDefect, LocationTechnician))
	}
}
