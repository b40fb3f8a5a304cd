package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/auth"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/identity"
	"github.com/vartik/vartikgpt/internal/utils"
)

// BootstrapResult is what the client needs to render the main view after sign-in.
type BootstrapResult struct {
	FormData            models.FormData `json:"formData"`
	DepartmentName      string          `json:"departmentName"`
	IsAdmin             bool            `json:"isAdmin"`
	Tabs                []string        `json:"tabs"`
	Token               string          `json:"token"`
	Degraded            bool            `json:"degraded"`
	Warnings            []string        `json:"warnings,omitempty"`
	InteractionRequired bool            `json:"interactionRequired,omitempty"`
	LoginURL            string          `json:"loginUrl,omitempty"`
}

func (r *BootstrapResult) warn(msg string) {
	r.Degraded = true
	r.Warnings = append(r.Warnings, msg)
}

type BootstrapService interface {
	LoginURL(state string) string
	SignIn(ctx context.Context, cb identity.Callback) (*BootstrapResult, error)
	Resume(ctx context.Context, owner string) (*BootstrapResult, error)
	SignOut(ctx context.Context, owner string) (string, error)
}

type BootstrapDeps struct {
	Identity    identity.Provider
	Departments identity.DepartmentResolver
	Users       directory.UserDirectory
	Sessions    directory.SessionDirectory
	Directory   directory.DepartmentDirectory
	Prefs       *prefs.Store
	Tokens      *auth.Issuer
	Defaults    models.SessionDefaults
	Log         *logrus.Logger
}

type bootstrapService struct {
	BootstrapDeps
}

func NewBootstrapService(d BootstrapDeps) BootstrapService {
	return &bootstrapService{BootstrapDeps: d}
}

func (s *bootstrapService) LoginURL(state string) string {
	return s.Identity.LoginURL(state)
}

func (s *bootstrapService) SignIn(ctx context.Context, cb identity.Callback) (*BootstrapResult, error) {
	const op = "BootstrapService.SignIn"

	id, err := s.Identity.SignIn(ctx, cb)
	if err != nil {
		s.Log.WithField("op", op).WithError(err).Warn("sign-in failed")
		return nil, err
	}
	if err := s.Prefs.SaveAccount(ctx, id.Account()); err != nil {
		s.Log.WithFields(logrus.Fields{"op": op, "owner": id.UniqueID}).WithError(err).Warn("account not cached")
	}
	return s.resolve(ctx, id)
}

// Resume bootstraps from the cached azureAccount. Without one the caller must sign in again.
func (s *bootstrapService) Resume(ctx context.Context, owner string) (*BootstrapResult, error) {
	const op = "BootstrapService.Resume"

	acc, found, err := s.Prefs.Account(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !found || acc.UniqueID == "" {
		return &BootstrapResult{InteractionRequired: true, LoginURL: s.Identity.LoginURL(uuid.NewString())},
			utils.E(utils.CodeUnauthorized, op, "sign-in required", nil)
	}
	return s.resolve(ctx, identity.FromAccount(acc))
}

// SignOut drops the cached records so the next bootstrap starts from scratch.
func (s *bootstrapService) SignOut(ctx context.Context, owner string) (string, error) {
	if err := s.Prefs.Clear(ctx, owner); err != nil {
		return "", err
	}
	s.Log.WithField("owner", owner).Info("signed out")
	return s.Identity.LogoutURL(), nil
}

// resolve runs ResolveUser, ResolveSession and Persist. Failures degrade the result instead of
// failing it; only token signing is fatal.
func (s *bootstrapService) resolve(ctx context.Context, id *identity.Identity) (*BootstrapResult, error) {
	const op = "BootstrapService.resolve"
	log := s.Log.WithFields(logrus.Fields{"op": op, "owner": id.UniqueID})

	res := &BootstrapResult{}
	fd := models.DefaultFormData()
	fd.Name = id.Name
	fd.UniqueAzureID = id.UniqueID

	user, err := s.Users.GetUserByExternalID(ctx, id.UniqueID)
	switch {
	case err == nil:
	case utils.IsCode(err, utils.CodeNotFound):
		user, err = s.provisionUser(ctx, id, res, &fd)
		if err != nil {
			log.WithError(err).Warn("first sign-in provisioning failed")
			res.warn("Failed to fetch user data: " + utils.SafeMessage(err))
		}
	default:
		log.WithError(err).Warn("user lookup failed")
		res.warn("Failed to fetch user data: " + utils.SafeMessage(err))
	}

	if user != nil {
		fd.UserID = user.ID
		fd.DepartmentID = user.DepartmentID
		if user.Name != "" {
			fd.Name = user.Name
		}
	}

	if fd.DepartmentID != 0 && fd.DepartmentName == "" {
		dep, err := s.Directory.GetDepartment(ctx, fd.DepartmentID)
		if err != nil {
			log.WithError(err).Warn("department lookup failed")
			res.warn("Failed to fetch department: " + utils.SafeMessage(err))
		} else {
			fd.DepartmentName = dep.Name
		}
	}

	s.resolveSession(ctx, id.UniqueID, res, &fd)

	if err := s.Prefs.SaveFormData(ctx, id.UniqueID, fd); err != nil {
		log.WithError(err).Warn("preferences not saved")
		res.warn("Failed to save preferences")
	}

	token, err := s.Tokens.Issue(id.UniqueID, fd.UserID, fd.DepartmentName)
	if err != nil {
		return nil, err
	}

	fd.Normalize()
	res.FormData = fd
	res.DepartmentName = fd.DepartmentName
	res.IsAdmin = models.IsAdminDepartment(fd.DepartmentName)
	res.Tabs = models.SettingsTabs(fd.DepartmentName)
	res.Token = token
	log.WithFields(logrus.Fields{"user_id": fd.UserID, "department": fd.DepartmentName, "degraded": res.Degraded}).Info("bootstrap complete")
	return res, nil
}

func (s *bootstrapService) resolveSession(ctx context.Context, owner string, res *BootstrapResult, fd *models.FormData) {
	if fd.UserID == 0 {
		s.applyDefaults(fd)
		return
	}
	sess, err := s.Sessions.GetSessionByUserID(ctx, fd.UserID)
	if utils.IsCode(err, utils.CodeNotFound) {
		sess, err = s.Sessions.CreateSession(ctx, models.NewSession(fd.UserID, owner, s.Defaults))
	}
	if err != nil {
		s.Log.WithFields(logrus.Fields{"owner": owner, "user_id": fd.UserID}).WithError(err).Warn("session not resolved")
		res.warn("Failed to fetch session: " + utils.SafeMessage(err))
		s.applyDefaults(fd)
		return
	}
	fd.ApplySession(*sess)
}

func (s *bootstrapService) applyDefaults(fd *models.FormData) {
	fd.LLMVendor = s.Defaults.LLMVendor
	fd.LLMModel = s.Defaults.LLMModel
	fd.EmbLLMVendor = s.Defaults.EmbLLMVendor
	fd.EmbLLMModel = s.Defaults.EmbLLMModel
	fd.ChunkingType = s.Defaults.ChunkingType
	fd.Temp = s.Defaults.Temp
	fd.MaxTokens = s.Defaults.MaxTokens
	fd.Normalize()
}

// provisionUser handles the first sign-in of an identity: group membership decides the
// department, the category and department are looked up or created, then the user row is created.
func (s *bootstrapService) provisionUser(ctx context.Context, id *identity.Identity, res *BootstrapResult, fd *models.FormData) (*models.User, error) {
	const op = "BootstrapService.provisionUser"

	fresh, err := s.Identity.TokenSilently(ctx, id)
	if err != nil {
		if utils.IsCode(err, utils.CodeInteractionRequired) {
			res.InteractionRequired = true
			res.LoginURL = s.Identity.LoginURL(uuid.NewString())
		}
		return nil, err
	}
	if fresh.AccessToken() != id.AccessToken() {
		if err := s.Prefs.SaveAccount(ctx, fresh.Account()); err != nil {
			s.Log.WithField("op", op).WithError(err).Warn("refreshed account not cached")
		}
	}

	name, err := s.Departments.DepartmentName(ctx, fresh.UniqueID, fresh.AccessToken())
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	cat, err := s.categoryFor(ctx, name, fd.PromptFile)
	if err != nil {
		return nil, err
	}
	fd.PromptFile = cat.PromptFile

	depID, err := s.Directory.DepartmentIDByCategory(ctx, cat.ID)
	if utils.IsCode(err, utils.CodeNotFound) {
		var dep *models.Department
		dep, err = s.Directory.CreateDepartment(ctx, models.Department{Name: name, CategoryID: cat.ID})
		if dep != nil {
			depID = dep.ID
		}
	}
	if err != nil {
		return nil, err
	}
	fd.DepartmentID = depID
	fd.DepartmentName = name

	// a concurrent sign-in may have created the row in the meantime
	if u, err := s.Users.GetUserByExternalID(ctx, id.UniqueID); err == nil {
		return u, nil
	}
	u, err := s.Users.CreateUser(ctx, models.User{Name: id.Name, UniqueAzureID: id.UniqueID, DepartmentID: depID})
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"op": op, "owner": id.UniqueID, "user_id": u.ID, "department": name}).Info("user provisioned")
	return u, nil
}

// categoryFor finds the category named name, creating it when the search comes back empty.
func (s *bootstrapService) categoryFor(ctx context.Context, name, promptFile string) (*models.Category, error) {
	cats, err := s.Directory.SearchCategories(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		for i := range cats {
			if strings.EqualFold(cats[i].Name, name) {
				return &cats[i], nil
			}
		}
		return &cats[0], nil
	}
	return s.Directory.CreateCategory(ctx, models.Category{Name: name, PromptFile: promptFile})
}
