package teleop

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bft-labs/basepilot/internal/app"
	"github.com/bft-labs/basepilot/internal/domain"
)

// Events forwards loop events to a running tea.Program. Events sent before
// Attach are dropped.
type Events struct {
	mu      sync.Mutex
	program *tea.Program
}

var (
	_ app.EventEmitter     = (*Events)(nil)
	_ app.LoopEventEmitter = (*Events)(nil)
)

// Attach sets the program that receives events.
func (e *Events) Attach(p *tea.Program) {
	e.mu.Lock()
	e.program = p
	e.mu.Unlock()
}

func (e *Events) send(msg tea.Msg) {
	e.mu.Lock()
	p := e.program
	e.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (e *Events) OnStateChange(previous, current app.State, reason string) {
	e.send(StateMsg{Previous: previous, Current: current, Reason: reason})
}

func (e *Events) OnCommandSent(domain.Command) {}

func (e *Events) OnSnapshot(snapshot domain.OdometrySnapshot) {
	e.send(SnapshotMsg{Snapshot: snapshot})
}

func (e *Events) OnOutOfOrder(err *domain.OutOfOrderError) {
	e.send(WarningMsg{Kind: "out_of_order", Detail: err.Error()})
}

func (e *Events) OnWarning(kind, detail string) {
	e.send(WarningMsg{Kind: kind, Detail: detail})
}
