package session

// ForkScope selects how much of a parent thread's state a fork carries
// over.
type ForkScope string

const (
	ForkFull    ForkScope = "full"
	ForkPartial ForkScope = "partial"
)

// ForkOptions configures one Fork call.
type ForkOptions struct {
	Scope           ForkScope
	IncludeHistory  bool
	IncludeMetadata bool
	ResetState      bool
	// Variables, when Scope is partial, restricts the snapshot to these
	// data keys. Ignored when Scope is full.
	Variables []string
}

// ForkContext is a one-time snapshot used to seed a child thread. The
// Session Orchestrator builds it and returns it to the caller, who hands
// its VariableSnapshot to the engine as the child thread's initial data.
type ForkContext struct {
	ParentThreadID   string
	ChildThreadID    string
	ForkPointNodeID  string
	VariableSnapshot map[string]any
	NodeSnapshot     map[string]any
	PromptSnapshot   any
	Options          ForkOptions
}

// StateSnapshotter is the minimal surface ForkService needs from the
// engine's State Manager: a point-in-time read of a thread's data.
type StateSnapshotter interface {
	SnapshotData(threadID string) (map[string]any, error)
}

// ForkService implements the Thread Fork Service:
// it reads a parent thread's state data through StateSnapshotter and
// builds the ForkContext that seeds a child thread. It does not read the
// parent's history or checkpoints: NodeSnapshot and PromptSnapshot are
// left nil, and IncludeHistory and IncludeMetadata have no effect.
type ForkService struct {
	state StateSnapshotter
}

// NewForkService returns a ForkService reading parent state through state.
func NewForkService(state StateSnapshotter) *ForkService {
	return &ForkService{state: state}
}

// Build constructs a ForkContext for parent at forkPointNodeID per opts.
// ResetState produces an empty VariableSnapshot regardless of scope —
// useful when only the prompt/context lineage matters to the child, not
// its data.
func (f *ForkService) Build(parent *Thread, forkPointNodeID string, opts ForkOptions) (*ForkContext, error) {
	ctx := &ForkContext{
		ParentThreadID:  parent.ID,
		ForkPointNodeID: forkPointNodeID,
		Options:         opts,
	}

	if opts.ResetState {
		ctx.VariableSnapshot = map[string]any{}
		return ctx, nil
	}

	data, err := f.state.SnapshotData(parent.ID)
	if err != nil {
		return nil, err
	}

	switch opts.Scope {
	case ForkPartial:
		snap := make(map[string]any, len(opts.Variables))
		for _, k := range opts.Variables {
			if v, ok := data[k]; ok {
				snap[k] = v
			}
		}
		ctx.VariableSnapshot = snap
	default: // ForkFull and unset
		snap := make(map[string]any, len(data))
		for k, v := range data {
			snap[k] = v
		}
		ctx.VariableSnapshot = snap
	}

	return ctx, nil
}
