package enums

type TickStatus string

const (
	TickStatusInvalid TickStatus = ""

	// TickStatusDraft ticks are stored but never rendered, polled or syndicated.
	TickStatusDraft TickStatus = "draft"

	// TickStatusPublish ticks are visible everywhere.
	TickStatusPublish TickStatus = "publish"
)

func ParseTickStatus(s string) TickStatus {
	switch TickStatus(s) {
	case TickStatusDraft:
		return TickStatusDraft
	case TickStatusPublish, "":
		return TickStatusPublish
	default:
		return TickStatusInvalid
	}
}
