package domain

// Destination is a navigation target a host router can dispatch to.
// Engines return destinations as data instead of invoking UI callbacks.
type Destination string

const (
	DestinationAROutstanding Destination = "ar_outstanding"
	DestinationAPOutstanding Destination = "ap_outstanding"
	DestinationCashIn        Destination = "cash_in"
	DestinationCashOut       Destination = "cash_out"
	DestinationMargin        Destination = "margin"
	DestinationReminders     Destination = "reminders"
	DestinationAutomations   Destination = "automations"
	DestinationAlerts        Destination = "alerts"
)
