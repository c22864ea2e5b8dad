package wire

// Reason is the machine-readable code of a rejected request.
type Reason string

const (
	ReasonAlreadyInMatch Reason = "AlreadyInMatch"
	ReasonNotYourTurn    Reason = "NotYourTurn"
	ReasonColumnFull     Reason = "ColumnFull"
	ReasonInvalidColumn  Reason = "InvalidColumn"
	ReasonMatchNotFound  Reason = "MatchNotFound"
	ReasonMatchPaused    Reason = "MatchPaused"
	ReasonInvalidRequest Reason = "InvalidRequest"
)

// Reasons lists every code, used to prebuild metric labels and catalog checks.
var Reasons = []Reason{
	ReasonAlreadyInMatch,
	ReasonNotYourTurn,
	ReasonColumnFull,
	ReasonInvalidColumn,
	ReasonMatchNotFound,
	ReasonMatchPaused,
	ReasonInvalidRequest,
}

// Error is returned by clients when the server rejects a command.
type Error struct {
	Reason  Reason
	Message string
}

func (e Error) Error() string {
	if e.Message != "" {
		return string(e.Reason) + ": " + e.Message
	}
	if e.Reason != "" {
		return string(e.Reason)
	}
	return "request rejected"
}
