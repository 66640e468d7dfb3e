package handler

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/config"
)

// SystemHandler serves the client configuration and the environment
// diagnostics page.
type SystemHandler struct {
	public    config.PublicProviderConfig
	env       string
	debugEnv  bool
	lookupEnv func(string) (string, bool)
	now       func() time.Time
	logger    *slog.Logger
}

func NewSystemHandler(cfg *config.Config, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		public:    cfg.Public,
		env:       cfg.Env,
		debugEnv:  cfg.IsDevelopment() || cfg.EnableDebugEnv,
		lookupEnv: os.LookupEnv,
		now:       time.Now,
		logger:    logger,
	}
}

// HandlePublicConfig returns the browser-side provider settings.
//
// HTTP: GET /api/config/public
func (h *SystemHandler) HandlePublicConfig(w http.ResponseWriter, r *http.Request) {
	if missing := h.public.Missing(); len(missing) > 0 {
		h.logger.Error("public provider config incomplete", slog.Any("missing", missing))
		writeError(w, apperror.Configuration(strings.Join(missing, ", "), nil))
		return
	}
	writeJSON(w, http.StatusOK, h.public)
}

type envVariable struct {
	Name    string `json:"name"`
	IsSet   bool   `json:"isSet"`
	Length  int    `json:"length"`
	Preview string `json:"preview,omitempty"`
}

type envSummary struct {
	Total        int      `json:"total"`
	Set          int      `json:"set"`
	Missing      int      `json:"missing"`
	MissingNames []string `json:"missingNames"`
}

type envReport struct {
	Environment string        `json:"environment"`
	Timestamp   time.Time     `json:"timestamp"`
	Variables   []envVariable `json:"variables"`
	Summary     envSummary    `json:"summary"`
}

// HandleDebugEnv reports which provider variables are set. Values are never
// returned; only their length and the first and last four characters.
//
// HTTP: GET /api/debug/env
func (h *SystemHandler) HandleDebugEnv(w http.ResponseWriter, r *http.Request) {
	if !h.debugEnv {
		writeError(w, apperror.Forbidden("environment diagnostics are disabled"))
		return
	}

	report := envReport{
		Environment: h.env,
		Timestamp:   h.now().UTC(),
		Variables:   make([]envVariable, 0, len(config.DiagnosedVars)),
		Summary:     envSummary{MissingNames: []string{}},
	}

	for _, name := range config.DiagnosedVars {
		v, ok := h.lookupEnv(name)
		set := ok && v != ""
		report.Variables = append(report.Variables, envVariable{
			Name:    name,
			IsSet:   set,
			Length:  len(v),
			Preview: preview(v),
		})
		report.Summary.Total++
		if set {
			report.Summary.Set++
		} else {
			report.Summary.Missing++
			report.Summary.MissingNames = append(report.Summary.MissingNames, name)
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// preview shows the first and last four characters of values long enough
// that this hides most of them.
func preview(v string) string {
	if len(v) <= 8 {
		return ""
	}
	return v[:4] + "..." + v[len(v)-4:]
}
