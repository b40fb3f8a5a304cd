package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/providers/provisioning"
	"github.com/vartik/vartikgpt/internal/utils"
)

// IndexDiscovery lists the indexes a department may select for a store.
type IndexDiscovery struct {
	Store    string   `json:"store"`
	Indexes  []string `json:"indexes"`
	Warnings []string `json:"warnings,omitempty"`
}

type indexDiscoverer struct {
	provisioners *provisioning.Set
	registry     directory.VectorStoreDirectory
	log          *logrus.Logger
}

// discover asks the provider and the directory at the same time and keeps only names both know,
// in registration order. It never fails: problems become warnings and an empty list.
func (d indexDiscoverer) discover(ctx context.Context, store string, departmentID int64) IndexDiscovery {
	out := IndexDiscovery{Store: store, Indexes: []string{}}
	kind, err := models.ParseStore(store)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("unknown vector store %q", store))
		return out
	}
	out.Store = string(kind)
	if departmentID == 0 {
		out.Warnings = append(out.Warnings, "department is not resolved")
		return out
	}
	prov, err := d.provisioners.For(kind)
	if err != nil {
		out.Warnings = append(out.Warnings, utils.SafeMessage(err))
		return out
	}

	var (
		listed  []string
		regs    []models.VectorStoreRegistration
		listErr error
		regErr  error
	)
	var wg conc.WaitGroup
	wg.Go(func() { listed, listErr = prov.ListIndexes(ctx) })
	wg.Go(func() { regs, regErr = d.registry.RegistrationsFor(ctx, string(kind), departmentID) })
	wg.Wait()

	if listErr != nil {
		d.log.WithFields(logrus.Fields{"store": kind}).WithError(listErr).Warn("index listing failed")
		out.Warnings = append(out.Warnings, fmt.Sprintf("Error fetching %s indexes", kind))
		return out
	}
	if regErr != nil {
		d.log.WithFields(logrus.Fields{"store": kind, "department_id": departmentID}).WithError(regErr).Warn("registration lookup failed")
		out.Warnings = append(out.Warnings, fmt.Sprintf("Error fetching vector store data for %s", kind))
		return out
	}
	out.Indexes = intersectRegistered(regs, listed)
	return out
}

func intersectRegistered(regs []models.VectorStoreRegistration, listed []string) []string {
	known := make(map[string]struct{}, len(listed))
	for _, n := range listed {
		known[n] = struct{}{}
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range regs {
		if _, ok := known[r.VectorIndex]; !ok {
			continue
		}
		if _, dup := seen[r.VectorIndex]; dup {
			continue
		}
		seen[r.VectorIndex] = struct{}{}
		out = append(out, r.VectorIndex)
	}
	return out
}
