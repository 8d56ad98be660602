package enums

type Variant string

const (
	// VariantStandalone renders time, title and the tick body.
	VariantStandalone Variant = "standalone"

	// VariantWidget renders time and title only. The body is never part of a widget fragment.
	VariantWidget Variant = "widget"
)
