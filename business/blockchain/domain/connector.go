package domain

// ConnectorInfo describes a wallet connector offered to the user.
type ConnectorInfo struct {
	ID          string
	Name        string
	Recommended bool
	Ready       bool // credentials configured
}
