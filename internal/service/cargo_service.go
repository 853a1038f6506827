package service

import (
	"math"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
)

// VolumetricFactorAirKgPerCBM converts cargo volume to air volumetric weight.
// It is the IATA divisor rule (volume_cm3 / 6000) pre-folded into a CBM-based
// constant; both formulations agree to two decimal places.
const VolumetricFactorAirKgPerCBM = 167.0

// CargoService is the pure costing engine. It is stateless and deterministic;
// the same input always yields the same totals, whether called for a client's
// running-total preview or for the pricing validation pass.
type CargoService struct{}

// NewCargoService constructs the costing engine.
func NewCargoService() *CargoService {
	return &CargoService{}
}

// ComputeTotals aggregates volume and weight across the cargo lines. For air
// mode it additionally derives volumetric and chargeable weight; sea and
// inland price on actual weight and volume, so both stay absent.
func (s *CargoService) ComputeTotals(lines []models.CargoLine, mode models.ShipmentMode) models.CargoTotals {
	totals := models.CargoTotals{}
	for _, line := range lines {
		totals.TotalVolumeCBM += line.VolumeCBM()
		totals.TotalWeightKg += line.WeightKg()
	}
	totals.TotalVolumeCBM = round2(totals.TotalVolumeCBM)
	totals.TotalWeightKg = round2(totals.TotalWeightKg)

	if mode == models.ModeAir {
		volumetric := round2(totals.TotalVolumeCBM * VolumetricFactorAirKgPerCBM)
		chargeable := math.Max(totals.TotalWeightKg, volumetric)
		totals.VolumetricWeightKg = &volumetric
		totals.ChargeableWeightKg = &chargeable
	}
	return totals
}

// HasBillableCargo reports whether at least one line contributes volume or
// weight. Pricing refuses to quote an RFQ whose every line is degenerate.
func (s *CargoService) HasBillableCargo(lines []models.CargoLine) bool {
	for _, line := range lines {
		if line.VolumeCBM() > 0 || line.WeightKg() > 0 {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
