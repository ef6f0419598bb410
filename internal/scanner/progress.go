package scanner

// Phase is a stage of a scan. Phases only move forward.
type Phase string

const (
	PhaseDiscovering Phase = "discovering"
	PhaseScanning    Phase = "scanning"
	PhaseEnriching   Phase = "enriching"
	PhaseComplete    Phase = "complete"
)

// Progress is a snapshot delivered to the observer on every phase
// transition and after each file is scanned.
type Progress struct {
	Phase           Phase
	FilesDiscovered int
	FilesScanned    int
	AgentsFound     int
	CurrentFile     string
}

// Observer receives progress synchronously on the scanning goroutine. It must
// not block for long.
type Observer func(Progress)

type tracker struct {
	observer Observer
	current  Progress
}

func (t *tracker) phase(p Phase) {
	t.current.Phase = p
	t.current.CurrentFile = ""
	t.emit()
}

func (t *tracker) file(path string, agents int) {
	t.current.FilesScanned++
	t.current.CurrentFile = path
	t.current.AgentsFound = agents
	t.emit()
}

func (t *tracker) emit() {
	if t.observer != nil {
		t.observer(t.current)
	}
}
