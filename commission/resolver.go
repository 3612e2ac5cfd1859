package commission

import (
	"context"
	"fmt"
)

// ParameterSource returns the active parameter for exactly one scope.
// A scope with no active parameter yields (nil, nil).
type ParameterSource interface {
	GetActiveParameter(ctx context.Context, scope Scope) (*Parameter, error)
}

// Directory looks up the collector a client is attached to.
type Directory interface {
	CollecteurOf(ctx context.Context, clientID string) (string, error)
}

// EntityRef names the client or collector a commission is computed for.
// CollecteurID is the client's collector when already known to the caller.
type EntityRef struct {
	Type         ScopeType
	ID           string
	CollecteurID string
}

// Resolution is the parameter that applies and the level it came from.
type Resolution struct {
	Parameter    Parameter
	ResolvedFrom Scope
}

// Resolver applies the override order CLIENT > COLLECTOR > AGENCY.
type Resolver struct {
	source    ParameterSource
	directory Directory
}

type ResolverOption func(*Resolver)

// WithDirectory lets the resolver find a client's collector when the
// reference does not carry it.
func WithDirectory(d Directory) ResolverOption {
	return func(r *Resolver) { r.directory = d }
}

func NewResolver(source ParameterSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{source: source}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the most specific active parameter for ref. Read-only.
func (r *Resolver) Resolve(ctx context.Context, ref EntityRef) (Resolution, error) {
	chain, err := r.chain(ctx, ref)
	if err != nil {
		return Resolution{}, err
	}

	for _, scope := range chain {
		p, err := r.source.GetActiveParameter(ctx, scope)
		if err != nil {
			return Resolution{}, fmt.Errorf("load parameter %s: %w", scope, err)
		}
		if p == nil || !p.Active {
			continue
		}
		if err := p.Validate(); err != nil {
			return Resolution{}, err
		}
		return Resolution{Parameter: *p, ResolvedFrom: scope}, nil
	}

	return Resolution{}, &ParameterNotFoundError{Ref: ref, Tried: chain}
}

func (r *Resolver) chain(ctx context.Context, ref EntityRef) ([]Scope, error) {
	switch ref.Type {
	case ScopeClient:
		chain := []Scope{ClientScope(ref.ID)}
		collecteurID := ref.CollecteurID
		if collecteurID == "" && r.directory != nil {
			id, err := r.directory.CollecteurOf(ctx, ref.ID)
			if err != nil {
				return nil, fmt.Errorf("find collector of client %s: %w", ref.ID, err)
			}
			collecteurID = id
		}
		if collecteurID != "" {
			chain = append(chain, CollectorScope(collecteurID))
		}
		return append(chain, AgencyScope()), nil
	case ScopeCollector:
		return []Scope{CollectorScope(ref.ID), AgencyScope()}, nil
	case ScopeAgency:
		return []Scope{AgencyScope()}, nil
	default:
		return nil, &InvalidParameterError{Reason: fmt.Sprintf("unknown entity type %q", ref.Type)}
	}
}
