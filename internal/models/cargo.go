package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PackageType enumerates supported cargo packaging.
type PackageType string

const (
	PackagePallet PackageType = "PALLET"
	PackageBox    PackageType = "BOX"
	PackageCrate  PackageType = "CRATE"
	PackageDrum   PackageType = "DRUM"
	PackageBag    PackageType = "BAG"
	PackageRoll   PackageType = "ROLL"
	PackageLoose  PackageType = "LOOSE"
)

// CargoLine is one package-dimension entry on an RFQ. Volume and weight are
// derived on read, never stored.
type CargoLine struct {
	Description     string      `json:"description"`
	PackageType     PackageType `json:"package_type"`
	Quantity        int         `json:"quantity"`
	LengthCm        float64     `json:"length_cm"`
	WidthCm         float64     `json:"width_cm"`
	HeightCm        float64     `json:"height_cm"`
	WeightPerUnitKg float64     `json:"weight_per_unit_kg"`
	Stackable       bool        `json:"stackable"`
}

// VolumeCBM returns the line volume in cubic meters. Lines with any
// non-positive dimension or quantity contribute zero volume; degenerate input
// is a policy, not an error.
func (l CargoLine) VolumeCBM() float64 {
	if l.Quantity <= 0 || l.LengthCm <= 0 || l.WidthCm <= 0 || l.HeightCm <= 0 {
		return 0
	}
	return l.LengthCm * l.WidthCm * l.HeightCm / 1_000_000 * float64(l.Quantity)
}

// WeightKg returns the aggregate line weight.
func (l CargoLine) WeightKg() float64 {
	if l.Quantity <= 0 || l.WeightPerUnitKg <= 0 {
		return 0
	}
	return float64(l.Quantity) * l.WeightPerUnitKg
}

// CargoLines is stored as a JSONB column on the rfqs table.
type CargoLines []CargoLine

// Value implements driver.Valuer.
func (c CargoLines) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal cargo lines: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (c *CargoLines) Scan(src interface{}) error {
	if src == nil {
		*c = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported cargo lines source type %T", src)
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	return json.Unmarshal(raw, c)
}

// CargoTotals aggregates the costing engine output. Volumetric and chargeable
// weight are present for air mode only.
type CargoTotals struct {
	TotalVolumeCBM     float64  `json:"total_volume_cbm"`
	TotalWeightKg      float64  `json:"total_weight_kg"`
	VolumetricWeightKg *float64 `json:"volumetric_weight_kg,omitempty"`
	ChargeableWeightKg *float64 `json:"chargeable_weight_kg,omitempty"`
}
