// Package provisioning allocates and removes vector store indexes through the provisioning API,
// one Provisioner per store kind.
package provisioning

import (
	"context"
	"sort"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

type Provisioner interface {
	Kind() models.VectorStoreKind
	ListIndexes(ctx context.Context) ([]string, error)
	Create(ctx context.Context, spec models.IndexSpec) error
	Delete(ctx context.Context, name string) error
}

// Set looks provisioners up by store kind. Later registrations replace earlier ones.
type Set struct {
	byKind map[models.VectorStoreKind]Provisioner
}

func NewSet(ps ...Provisioner) *Set {
	s := &Set{byKind: map[models.VectorStoreKind]Provisioner{}}
	for _, p := range ps {
		s.Register(p)
	}
	return s
}

func (s *Set) Register(p Provisioner) {
	if p != nil {
		s.byKind[p.Kind()] = p
	}
}

func (s *Set) For(kind models.VectorStoreKind) (Provisioner, error) {
	p, ok := s.byKind[kind]
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, "Provisioning.For", "unsupported vector store", nil)
	}
	return p, nil
}

func (s *Set) Kinds() []models.VectorStoreKind {
	out := make([]models.VectorStoreKind, 0, len(s.byKind))
	for k := range s.byKind {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether name is among the provider-reported indexes.
func Contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
