package orchestrator

import "context"

// AreaDoc is one architect-generated area document, ready to be written to
// areas/<ID>.md on the plan branch.
type AreaDoc struct {
	ID      string
	Content string
}

// TicketDoc is one manager-generated ticket, ready to be written to
// tickets/open/<NNNN>-<Slug>.md once assigned an id.
type TicketDoc struct {
	Slug        string
	Title       string
	Description string
}

// ArchitectGenerator decomposes the spec into areas. Implementations are
// injected LLM adapters; the orchestrator only depends on this interface
// (spec.md §9 "generators as injected capabilities").
type ArchitectGenerator interface {
	GenerateAreas(ctx context.Context, model, spec string) ([]AreaDoc, error)
}

// ManagerGenerator decomposes a single area into tickets.
type ManagerGenerator interface {
	GenerateTickets(ctx context.Context, model, areaRelPath, areaContent string) ([]TicketDoc, error)
}

// ArchitectFunc adapts a plain function to ArchitectGenerator.
type ArchitectFunc func(ctx context.Context, model, spec string) ([]AreaDoc, error)

func (f ArchitectFunc) GenerateAreas(ctx context.Context, model, spec string) ([]AreaDoc, error) {
	return f(ctx, model, spec)
}

// ManagerFunc adapts a plain function to ManagerGenerator.
type ManagerFunc func(ctx context.Context, model, areaRelPath, areaContent string) ([]TicketDoc, error)

func (f ManagerFunc) GenerateTickets(ctx context.Context, model, areaRelPath, areaContent string) ([]TicketDoc, error) {
	return f(ctx, model, areaRelPath, areaContent)
}
