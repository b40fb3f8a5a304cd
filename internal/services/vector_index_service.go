package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/providers/provisioning"
	"github.com/vartik/vartikgpt/internal/repositories"
	"github.com/vartik/vartikgpt/internal/utils"
)

type VectorIndexService interface {
	List(ctx context.Context, store string) ([]string, error)
	Create(ctx context.Context, actor string, spec models.IndexSpec) (*models.SagaResult, error)
	Delete(ctx context.Context, actor, store, name string) (*models.SagaResult, error)
}

type vectorIndexService struct {
	provisioners *provisioning.Set
	registry     directory.VectorStoreDirectory
	audit        auditor
	log          *logrus.Logger
}

func NewVectorIndexService(p *provisioning.Set, registry directory.VectorStoreDirectory, audit repositories.AuditRepository, log *logrus.Logger) VectorIndexService {
	return &vectorIndexService{provisioners: p, registry: registry, audit: auditor{repo: audit, log: log}, log: log}
}

func (s *vectorIndexService) provisioner(op, store string) (models.VectorStoreKind, provisioning.Provisioner, error) {
	kind, err := models.ParseStore(store)
	if err != nil {
		return "", nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
	}
	p, err := s.provisioners.For(kind)
	if err != nil {
		return "", nil, err
	}
	return kind, p, nil
}

func (s *vectorIndexService) List(ctx context.Context, store string) ([]string, error) {
	const op = "VectorIndexService.List"
	_, p, err := s.provisioner(op, store)
	if err != nil {
		return nil, err
	}
	names, err := p.ListIndexes(ctx)
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "store": store}).WithError(err).Warn("index listing failed")
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Create registers the index for the department and then provisions it. The two systems are not
// transactional: provisioning runs whatever registration returned, and each step is reported on its own.
func (s *vectorIndexService) Create(ctx context.Context, actor string, spec models.IndexSpec) (*models.SagaResult, error) {
	const op = "VectorIndexService.Create"

	kind, p, err := s.provisioner(op, string(spec.Store))
	if err != nil {
		return nil, err
	}
	spec.Store = kind
	spec.Name = strings.TrimSpace(spec.Name)
	if err := spec.Validate(); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
	}
	if spec.DepartmentID == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "department is required", nil)
	}
	log := s.log.WithFields(logrus.Fields{"op": op, "store": kind, "index": spec.Name})

	res := &models.SagaResult{Store: kind, Name: spec.Name}

	_, err = s.registry.RegisterVectorStore(ctx, models.VectorStoreRegistration{
		VectorIndex:  spec.Name,
		Type:         string(kind),
		DepartmentID: spec.DepartmentID,
	})
	switch {
	case err == nil:
		res.Registration = models.PhaseOutcome{Status: models.PhaseOK}
	case utils.IsCode(err, utils.CodeConflict):
		res.Registration = models.PhaseOutcome{Status: models.PhaseConflict, Message: "Vector store already registered for this department"}
	default:
		log.WithError(err).Warn("registration failed")
		res.Registration = models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to register vector store: " + utils.SafeMessage(err)}
	}

	res.Provisioning = s.provision(ctx, log, p, spec)
	res.Created = res.Provisioning.Status == models.PhaseOK || res.Provisioning.Status == models.PhaseExists

	s.audit.record(ctx, actor, "index.create", string(kind)+"/"+spec.Name,
		outcomeOf(res.Registration.Status, res.Provisioning.Status), res, nil)
	log.WithFields(logrus.Fields{"registration": res.Registration.Status, "provisioning": res.Provisioning.Status}).Info("index create finished")
	return res, nil
}

func (s *vectorIndexService) provision(ctx context.Context, log *logrus.Entry, p provisioning.Provisioner, spec models.IndexSpec) models.PhaseOutcome {
	names, err := p.ListIndexes(ctx)
	if err != nil {
		log.WithError(err).Warn("index listing failed")
		return models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to list indexes: " + utils.SafeMessage(err)}
	}
	if provisioning.Contains(names, spec.Name) {
		return models.PhaseOutcome{Status: models.PhaseExists, Message: "Index already exists"}
	}
	if err := p.Create(ctx, spec); err != nil {
		log.WithError(err).Warn("index provisioning failed")
		return models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to create index: " + utils.SafeMessage(err)}
	}
	return models.PhaseOutcome{Status: models.PhaseOK}
}

// Delete attempts both the deregistration and the provider delete and reports both.
func (s *vectorIndexService) Delete(ctx context.Context, actor, store, name string) (*models.SagaResult, error) {
	const op = "VectorIndexService.Delete"

	kind, p, err := s.provisioner(op, store)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "index name is required", nil)
	}
	log := s.log.WithFields(logrus.Fields{"op": op, "store": kind, "index": name})
	res := &models.SagaResult{Store: kind, Name: name}

	switch err := s.registry.DeregisterVectorStore(ctx, name, string(kind)); {
	case err == nil:
		res.Registration = models.PhaseOutcome{Status: models.PhaseOK}
	case utils.IsCode(err, utils.CodeNotFound):
		res.Registration = models.PhaseOutcome{Status: models.PhaseSkipped, Message: "No registration found"}
	default:
		log.WithError(err).Warn("deregistration failed")
		res.Registration = models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to deregister vector store: " + utils.SafeMessage(err)}
	}

	if err := p.Delete(ctx, name); err != nil {
		log.WithError(err).Warn("provider delete failed")
		res.Provisioning = models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to delete index: " + utils.SafeMessage(err)}
	} else {
		res.Provisioning = models.PhaseOutcome{Status: models.PhaseOK}
		res.Deleted = true
	}

	s.audit.record(ctx, actor, "index.delete", string(kind)+"/"+name,
		outcomeOf(res.Registration.Status, res.Provisioning.Status), res, nil)
	return res, nil
}
