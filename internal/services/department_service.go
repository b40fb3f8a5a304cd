package services

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/repositories"
	"github.com/vartik/vartikgpt/internal/utils"
)

type Catalog struct {
	Departments []models.Department `json:"departments"`
	Categories  []models.Category   `json:"categories"`
}

// DepartmentDeletion reports the two delete steps separately.
type DepartmentDeletion struct {
	DepartmentID int64               `json:"departmentId"`
	Department   models.PhaseOutcome `json:"department"`
	Category     models.PhaseOutcome `json:"category"`
	Deleted      bool                `json:"deleted"`
}

type DepartmentService interface {
	Catalog(ctx context.Context) (*Catalog, error)
	// Snapshot returns the last catalog without calling the directory.
	Snapshot() *Catalog
	Create(ctx context.Context, actor, name, promptFile string) (*models.Department, error)
	Delete(ctx context.Context, actor string, id int64, confirmed bool) (*DepartmentDeletion, error)
}

type departmentService struct {
	dir   directory.DepartmentDirectory
	audit auditor
	log   *logrus.Logger

	mu       sync.RWMutex
	snapshot Catalog
}

func NewDepartmentService(dir directory.DepartmentDirectory, audit repositories.AuditRepository, log *logrus.Logger) DepartmentService {
	return &departmentService{dir: dir, audit: auditor{repo: audit, log: log}, log: log}
}

// Catalog refreshes the snapshot. The admin department is never listed.
func (s *departmentService) Catalog(ctx context.Context) (*Catalog, error) {
	deps, err := s.dir.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.dir.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c := Catalog{Departments: models.HideAdmin(deps), Categories: cats}
	if c.Categories == nil {
		c.Categories = []models.Category{}
	}

	s.mu.Lock()
	s.snapshot = c
	s.mu.Unlock()
	return s.copySnapshot(), nil
}

func (s *departmentService) Snapshot() *Catalog { return s.copySnapshot() }

func (s *departmentService) copySnapshot() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Catalog{
		Departments: append([]models.Department{}, s.snapshot.Departments...),
		Categories:  append([]models.Category{}, s.snapshot.Categories...),
	}
}

func (s *departmentService) Create(ctx context.Context, actor, name, promptFile string) (*models.Department, error) {
	const op = "DepartmentService.Create"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "department name is required", nil)
	}

	cat, err := s.categoryByName(ctx, name, promptFile)
	if err != nil {
		s.audit.record(ctx, actor, "department.create", name, OutcomeFailed, nil, []string{utils.SafeMessage(err)})
		return nil, err
	}
	dep, err := s.dir.CreateDepartment(ctx, models.Department{Name: name, CategoryID: cat.ID})
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "department": name}).WithError(err).Warn("department create failed")
		s.audit.record(ctx, actor, "department.create", name, OutcomeFailed, nil, []string{utils.SafeMessage(err)})
		return nil, err
	}

	s.mu.Lock()
	if !strings.EqualFold(dep.Name, "admin") {
		s.snapshot.Departments = append(s.snapshot.Departments, *dep)
	}
	if !hasCategory(s.snapshot.Categories, cat.ID) {
		s.snapshot.Categories = append(s.snapshot.Categories, *cat)
	}
	s.mu.Unlock()

	s.audit.record(ctx, actor, "department.create", name, OutcomeOK, nil, nil)
	s.log.WithFields(logrus.Fields{"op": op, "department": name, "id": dep.ID}).Info("department created")
	return dep, nil
}

// categoryByName reuses an existing category of the same name so categories are never duplicated.
func (s *departmentService) categoryByName(ctx context.Context, name, promptFile string) (*models.Category, error) {
	found, err := s.dir.SearchCategories(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range found {
		if strings.EqualFold(found[i].Name, name) {
			return &found[i], nil
		}
	}
	return s.dir.CreateCategory(ctx, models.Category{Name: name, PromptFile: promptFile})
}

func hasCategory(cats []models.Category, id int64) bool {
	for _, c := range cats {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Delete removes the department and then its category. The snapshot only changes when both succeed.
func (s *departmentService) Delete(ctx context.Context, actor string, id int64, confirmed bool) (*DepartmentDeletion, error) {
	const op = "DepartmentService.Delete"
	log := s.log.WithFields(logrus.Fields{"op": op, "department_id": id})

	if !confirmed {
		return nil, utils.E(utils.CodeInvalidArgument, op, "confirmation required", nil)
	}
	dep, err := s.dir.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.IsAdminDepartment(dep.Name) {
		return nil, utils.E(utils.CodeForbidden, op, "the ADMIN department cannot be deleted", nil)
	}

	res := &DepartmentDeletion{
		DepartmentID: id,
		Department:   models.PhaseOutcome{Status: models.PhaseOK},
		Category:     models.PhaseOutcome{Status: models.PhaseSkipped},
	}
	target := dep.Name + "#" + strconv.FormatInt(id, 10)

	if err := s.dir.DeleteDepartment(ctx, id); err != nil {
		log.WithError(err).Warn("department delete failed")
		res.Department = models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to delete department: " + utils.SafeMessage(err)}
		s.audit.record(ctx, actor, "department.delete", target, OutcomeFailed, res, nil)
		return res, nil
	}
	if dep.CategoryID != 0 {
		if err := s.dir.DeleteCategory(ctx, dep.CategoryID); err != nil {
			log.WithError(err).Warn("category delete failed")
			res.Category = models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to delete category: " + utils.SafeMessage(err)}
			s.audit.record(ctx, actor, "department.delete", target, OutcomePartial, res, nil)
			return res, nil
		}
		res.Category = models.PhaseOutcome{Status: models.PhaseOK}
	}
	res.Deleted = true

	s.mu.Lock()
	s.snapshot.Departments = dropDepartment(s.snapshot.Departments, id)
	s.snapshot.Categories = dropCategory(s.snapshot.Categories, dep.CategoryID)
	s.mu.Unlock()

	s.audit.record(ctx, actor, "department.delete", target, OutcomeOK, res, nil)
	log.Info("department deleted")
	return res, nil
}

func dropDepartment(in []models.Department, id int64) []models.Department {
	out := in[:0:0]
	for _, d := range in {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

func dropCategory(in []models.Category, id int64) []models.Category {
	out := in[:0:0]
	for _, c := range in {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
