package models

// PiggybackRequest is the body of a devops piggyback call.
type PiggybackRequest struct {
	TargetActorSelection string           `json:"targetActorSelection"`
	Headers              PiggybackHeaders `json:"headers"`
	PiggybackCommand     PiggybackCommand `json:"piggybackCommand"`
}

// PiggybackHeaders are the Ditto headers of a piggyback command.
type PiggybackHeaders struct {
	Aggregate     bool   `json:"aggregate"`
	CorrelationID string `json:"correlation-id,omitempty"`
}

// PiggybackCommand carries either a full connection (create) or a connection ID (delete).
type PiggybackCommand struct {
	Type         string      `json:"type"`
	Connection   *Connection `json:"connection,omitempty"`
	ConnectionID string      `json:"connectionId,omitempty"`
}
