package audit

import "fmt"

// State 是审计驱动的状态机状态。
//
//	Idle -> Validating -> Scanning -> Reporting -> Done
//	Validating -> Done（空选择 / 查询失败）
//	Scanning -> Cancelled（吸收态）
type State uint8

const (
	StateIdle State = iota
	StateValidating
	StateScanning
	StateReporting
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateScanning:
		return "scanning"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateScanning, StateDone},
	StateScanning:   {StateReporting, StateCancelled},
	StateReporting:  {StateDone},
}

// Terminal 表示状态不再迁移。
func (s State) Terminal() bool { return s == StateDone || s == StateCancelled }

func (s State) canMove(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// machine 记录一次 Run 的状态迁移轨迹。非法迁移属于编程错误，直接 panic。
type machine struct {
	cur   State
	trace []State
}

func newMachine() *machine {
	return &machine{cur: StateIdle, trace: []State{StateIdle}}
}

func (m *machine) move(to State) {
	if !m.cur.canMove(to) {
		panic(fmt.Sprintf("audit: 非法状态迁移 %s -> %s", m.cur, to))
	}
	m.cur = to
	m.trace = append(m.trace, to)
}
