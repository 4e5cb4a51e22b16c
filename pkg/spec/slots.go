package spec

type SlotStatus string

const (
	SlotValidated SlotStatus = "validated"
	SlotSkipped   SlotStatus = "skipped"
)
