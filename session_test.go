package delegate

import (
	"context"
	"fmt"
	"sync"
)

// --- Fake collaborators shared by coordinator, orchestrator, and engine tests ---

// fakeSession is a scripted SessionHandle. The onTurn hook plays the model's
// side of a KindMessage round trip: it may invoke registered tools via
// callTool and returns when the simulated turn completes. A nil onTurn never
// calls a tool (a dangling child).
type fakeSession struct {
	id     string
	parent SessionHandle

	mu        sync.Mutex
	tools     map[string]RegisteredTool
	mode      ToolExecutionMode
	modeSets  int
	messages  []string
	statuses  []string
	turns     int
	cancels   int
	disposals int

	onTurn       func(ctx context.Context, turn int, text string) error
	usageVal     Usage
	disposePanic bool
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, tools: make(map[string]RegisteredTool)}
}

func (s *fakeSession) ID() string            { return s.id }
func (s *fakeSession) Parent() SessionHandle { return s.parent }

func (s *fakeSession) SendMessage(ctx context.Context, kind MessageKind, text string) error {
	if kind != KindMessage {
		s.mu.Lock()
		s.statuses = append(s.statuses, text)
		s.mu.Unlock()
		return nil
	}
	s.mu.Lock()
	s.messages = append(s.messages, text)
	turn := s.turns
	s.turns++
	script := s.onTurn
	s.mu.Unlock()

	if script == nil {
		return nil
	}
	return script(ctx, turn, text)
}

func (s *fakeSession) RegisterTools(tools map[string]RegisteredTool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, tool := range tools {
		s.tools[name] = tool
	}
}

func (s *fakeSession) SetToolExecutionMode(mode ToolExecutionMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.modeSets++
}

func (s *fakeSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *fakeSession) Dispose() {
	s.mu.Lock()
	panics := s.disposePanic
	s.disposals++
	s.mu.Unlock()
	if panics {
		panic("session already torn down")
	}
}

func (s *fakeSession) Usage() Usage { return s.usageVal }

// callTool invokes a registered tool the way the host's LLM layer would.
func (s *fakeSession) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	tool, ok := s.tools[name]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}
	return tool.Call(ctx, args)
}

func (s *fakeSession) sentMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *fakeSession) sentStatuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.statuses))
	copy(out, s.statuses)
	return out
}

func (s *fakeSession) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

func (s *fakeSession) disposeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposals
}

func (s *fakeSession) currentMode() ToolExecutionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// fakeHost creates fakeSession children, applying a per-test setup hook to
// each before handing it to the coordinator.
type fakeHost struct {
	mu      sync.Mutex
	setup   func(child *fakeSession)
	created []*fakeSession
	failErr error
}

func (h *fakeHost) CreateChildSession(ctx context.Context, parent SessionHandle, personName string) (SessionHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failErr != nil {
		return nil, h.failErr
	}
	child := newFakeSession(GenerateID(PrefixSession))
	child.parent = parent
	if h.setup != nil {
		h.setup(child)
	}
	h.created = append(h.created, child)
	return child, nil
}

func (h *fakeHost) ListAssistants(name string) []Assistant {
	return []Assistant{{Name: "researcher", Description: "general research assistant"}}
}

func (h *fakeHost) children() []*fakeSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*fakeSession, len(h.created))
	copy(out, h.created)
	return out
}

// chainedSession builds a parent chain of the given depth for recursion tests.
func chainedSession(depth int) *fakeSession {
	sess := newFakeSession("sess_root")
	for i := 0; i < depth; i++ {
		child := newFakeSession(fmt.Sprintf("sess_level_%d", i+1))
		child.parent = sess
		sess = child
	}
	return sess
}
