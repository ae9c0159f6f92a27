package recipe

// Version constants for persisted state and the service itself.
const (
	// SchemaVersion tags every persisted snapshot. It is the only version
	// the store recognizes on restore.
	SchemaVersion = "V1"

	// ServiceVersion is the recipe decider version reported to peers.
	ServiceVersion = "0.1.0"

	// ServiceName identifies the service in traces and peer handshakes.
	ServiceName = "recipedecider"
)
