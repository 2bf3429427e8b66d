package formconfig_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/supportdesk/internal/app/features/errors"
	"github.com/dalemusser/supportdesk/internal/app/features/formconfig"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/apierr"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/supportdesk/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*formconfig.Handler, store.Set) {
	t.Helper()
	logger := zap.NewNop()
	set := testutil.NewMemoryBackend(t)
	return formconfig.NewHandler(set.FormConfigs, nil, uierrors.NewErrorLogger(logger), logger), set
}

func TestGet_EmptyWhenUnsaved(t *testing.T) {
	h, _ := newHandler(t)
	rec := httptest.NewRecorder()
	h.Get(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/api/form-config", testutil.AdminUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cfg models.FormConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Fields) != 0 || len(cfg.Modules) != 0 {
		t.Errorf("cfg = %+v, want empty", cfg)
	}
}

func TestPut(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   int
		fields []string
	}{
		{
			name: "valid tree",
			body: `{"fields":[{"name":"browser","label":"Browser","type":"text"}],
				"modules":[{"name":"Billing","color":"#112233","children":[{"name":"Invoices","color":"#aabbcc"}]}]}`,
			want: http.StatusOK,
		},
		{
			name:   "bad color",
			body:   `{"modules":[{"name":"Billing","color":"red"}]}`,
			want:   http.StatusUnprocessableEntity,
			fields: []string{"modules[0].color"},
		},
		{
			name:   "short color",
			body:   `{"modules":[{"name":"Billing","color":"#abc"}]}`,
			want:   http.StatusUnprocessableEntity,
			fields: []string{"modules[0].color"},
		},
		{
			name:   "blank child name",
			body:   `{"modules":[{"name":"Billing","color":"#112233","children":[{"name":"  ","color":"#112233"}]}]}`,
			want:   http.StatusUnprocessableEntity,
			fields: []string{"modules[0].children[0].name"},
		},
		{
			name:   "duplicate siblings",
			body:   `{"modules":[{"name":"Billing","color":"#112233"},{"name":"billing ","color":"#445566"}]}`,
			want:   http.StatusUnprocessableEntity,
			fields: []string{"modules[1].name"},
		},
		{
			name: "bad field type",
			body: `{"fields":[{"name":"x","label":"X","type":"color"}]}`,
			want: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t)
			rec := httptest.NewRecorder()
			req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPut, "/api/form-config", tt.body), testutil.AdminUser())
			h.Put(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if len(tt.fields) == 0 {
				return
			}
			var body apierr.Body
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			for _, f := range tt.fields {
				if _, ok := body.Fields[f]; !ok {
					t.Errorf("fields = %v, missing %s", body.Fields, f)
				}
			}
		})
	}
}

func TestPut_Persists(t *testing.T) {
	h, set := newHandler(t)
	body := `{"modules":[{"name":"Billing","color":"#112233"}]}`
	req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPut, "/api/form-config", body), testutil.AdminUser())
	h.Put(httptest.NewRecorder(), req)

	cfg, err := set.FormConfigs.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cfg.Modules) != 1 || cfg.Modules[0].Name != "Billing" {
		t.Errorf("modules = %+v", cfg.Modules)
	}
	if cfg.UpdatedBy != testutil.AdminUser().UID || cfg.UpdatedAt.IsZero() {
		t.Errorf("updated = %q at %v", cfg.UpdatedBy, cfg.UpdatedAt)
	}
}
