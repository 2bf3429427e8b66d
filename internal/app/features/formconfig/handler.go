// internal/app/features/formconfig/handler.go
package formconfig

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/inputval"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler serves the ticket form editor and its API.
type Handler struct {
	Forms  store.FormConfigs
	Audit  *auditlog.Logger
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(forms store.FormConfigs, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Forms: forms, Audit: audit, ErrLog: errLog, Log: logger}
}

func (h *Handler) load(ctx context.Context) (models.FormConfig, error) {
	cfg, err := h.Forms.Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.FormConfig{ID: models.FormConfigID, Fields: []models.FormField{}, Modules: []models.FormOption{}}, nil
	}
	return cfg, err
}

type pageData struct {
	viewdata.BaseVM
	Config     models.FormConfig
	ConfigJSON string
}

// ServeEditor renders /editTicketform with the current configuration.
func (h *Handler) ServeEditor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cfg, err := h.load(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load form config failed", err, "The ticket form could not be loaded.", "/admin")
		return
	}
	raw, _ := json.MarshalIndent(cfg, "", "  ")
	templates.Render(w, r, "form_editor", pageData{
		BaseVM:     viewdata.NewBaseVM(r, "Ticket form", "/admin"),
		Config:     cfg,
		ConfigJSON: string(raw),
	})
}

// Get answers GET /api/form-config.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cfg, err := h.load(ctx)
	if err != nil {
		apierr.Internal(w, r, h.Log, "load form config failed", err)
		return
	}
	apierr.JSON(w, http.StatusOK, cfg)
}

// Put answers PUT /api/form-config by replacing the whole document.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var cfg models.FormConfig
	if !apierr.Decode(w, r, &cfg) {
		return
	}
	if errs := checkNames(cfg); len(errs) > 0 {
		apierr.Invalid(w, errs)
		return
	}

	id, _ := auth.CurrentIdentity(r)
	cfg.ID = models.FormConfigID
	cfg.UpdatedAt = time.Now().UTC()
	cfg.UpdatedBy = id.UID
	if cfg.Fields == nil {
		cfg.Fields = []models.FormField{}
	}
	if cfg.Modules == nil {
		cfg.Modules = []models.FormOption{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if err := h.Forms.Save(ctx, cfg); err != nil {
		apierr.Internal(w, r, h.Log, "save form config failed", err)
		return
	}
	h.Audit.FormConfigUpdated(ctx, id.UID, len(cfg.Fields), len(cfg.Modules))
	apierr.JSON(w, http.StatusOK, cfg)
}

// checkNames rejects blank names (after trimming) and duplicate names among
// siblings, which the struct tags cannot express.
func checkNames(cfg models.FormConfig) inputval.Errors {
	errs := inputval.Errors{}
	seen := map[string]bool{}
	for i, f := range cfg.Fields {
		key := normalize.NameCI(f.Name)
		path := "fields[" + strconv.Itoa(i) + "].name"
		switch {
		case key == "":
			errs[path] = "is required"
		case seen[key]:
			errs[path] = "duplicates another field"
		}
		seen[key] = true
	}
	checkOptions(errs, "modules", cfg.Modules)
	return errs
}

func checkOptions(errs inputval.Errors, prefix string, opts []models.FormOption) {
	seen := map[string]bool{}
	for i, o := range opts {
		path := prefix + "[" + strconv.Itoa(i) + "]"
		key := normalize.NameCI(o.Name)
		switch {
		case key == "":
			errs[path+".name"] = "is required"
		case seen[key]:
			errs[path+".name"] = "duplicates a sibling option"
		}
		seen[key] = true
		if !strings.HasPrefix(o.Color, "#") || len(o.Color) != 7 {
			errs[path+".color"] = "must be a #rrggbb color"
		}
		checkOptions(errs, path+".children", o.Children)
	}
}
