package engine

// State names one step of the per-slip placement machine. Every slip walks
// the same forced path; there are no alternative transitions.
type State int

const (
	StateNavigate State = iota
	StateSelectOutcomes
	StateEnterStake
	StateConfirm
	StateVerify
	StateRecord
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNavigate:
		return "NAVIGATE"
	case StateSelectOutcomes:
		return "SELECT_OUTCOMES"
	case StateEnterStake:
		return "ENTER_STAKE"
	case StateConfirm:
		return "CONFIRM"
	case StateVerify:
		return "VERIFY"
	case StateRecord:
		return "RECORD"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}
