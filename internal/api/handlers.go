package api

import (
	"context"
	"net/http"
	"os"

	"github.com/flagmux/flagmux/internal/engine"
	"github.com/flagmux/flagmux/internal/provider"
	"github.com/flagmux/flagmux/internal/router"
)

// The demo flag set every provider is expected to carry.
const (
	flagNewBadge   = "new-badge"
	flagCtaColor   = "cta-color"
	flagAPIEnabled = "api-new-endpoint-enabled"
)

// flagSample is one evaluation pass over the demo flag set.
type flagSample struct {
	NewBadge              bool   `json:"newBadge"`
	CtaColor              string `json:"ctaColor"`
	APINewEndpointEnabled bool   `json:"apiNewEndpointEnabled"`
}

func requestIdentity(r *http.Request) string {
	uid := r.URL.Query().Get("userId")
	if uid == "" {
		return engine.AnonymousUserID
	}
	return uid
}

func (s *Server) effectiveProvider(r *http.Request) string {
	return router.EffectiveProvider(r.URL.Query().Get("provider"), s.cfg.DefaultProvider)
}

func (s *Server) sample(ctx context.Context, providerName, userID string) (flagSample, error) {
	var out flagSample
	var err error

	if out.NewBadge, err = s.reg.EvaluateBoolean(ctx, providerName, flagNewBadge, false, userID); err != nil {
		return out, err
	}
	if out.CtaColor, err = s.reg.EvaluateString(ctx, providerName, flagCtaColor, "blue", userID); err != nil {
		return out, err
	}
	if out.APINewEndpointEnabled, err = s.reg.EvaluateBoolean(ctx, providerName, flagAPIEnabled, false, userID); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ready := make(map[string]bool, 6)
	for _, name := range []string{
		provider.NameLocalDaemon,
		provider.NameTargetingFile,
		provider.NameTargetingOnline,
		provider.NameSimpleFile,
		provider.NameSegmentFile,
		provider.NameSegmentOnline,
	} {
		ready[name] = s.reg.Ready(name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                 "ok",
		"backendProviderDefault": s.cfg.DefaultProvider,
		"effectiveProvider":      s.effectiveProvider(r),
		"frontendOrigin":         s.cfg.FrontendOrigin,
		"providers":              ready,
	})
}

func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	p := s.effectiveProvider(r)
	sample, err := s.sample(r.Context(), p, requestIdentity(r))
	if err != nil {
		s.log.Error().Err(err).Str("provider", p).Msg("flag evaluation failed")
		InternalError(w, r, ErrCodeEvaluation, "flag evaluation failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"newBadge":              sample.NewBadge,
		"ctaColor":              sample.CtaColor,
		"apiNewEndpointEnabled": sample.APINewEndpointEnabled,
		"provider":              p,
	})
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	p := s.effectiveProvider(r)
	on, err := s.reg.EvaluateBoolean(r.Context(), p, flagNewBadge, false, requestIdentity(r))
	if err != nil {
		InternalError(w, r, ErrCodeEvaluation, "flag evaluation failed: "+err.Error())
		return
	}

	msg := "New feature is OFF (from backend)"
	if on {
		msg = "New feature is ON (from backend)"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	p := s.effectiveProvider(r)
	allowed, err := s.reg.EvaluateBoolean(r.Context(), p, flagAPIEnabled, false, requestIdentity(r))
	if err != nil {
		InternalError(w, r, ErrCodeEvaluation, "flag evaluation failed: "+err.Error())
		return
	}
	if !allowed {
		ForbiddenError(w, r, "feature disabled by flag")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": "super secret data"})
}

// diagSample evaluates the demo flag set against one named provider and
// reports the outcome without ever failing the request.
func (s *Server) diagSample(w http.ResponseWriter, r *http.Request, providerName string) {
	sample, err := s.sample(r.Context(), providerName, requestIdentity(r))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sample": sample})
}

func (s *Server) handleDiagSegmentOnline(w http.ResponseWriter, r *http.Request) {
	s.diagSample(w, r, provider.NameSegmentOnline)
}

func (s *Server) handleDiagTargetingOnline(w http.ResponseWriter, r *http.Request) {
	s.diagSample(w, r, provider.NameTargetingOnline)
}

func (s *Server) handleDiagTargetingFile(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.TargetingFlagsFile
	info := map[string]any{
		"file_path":   path,
		"file_exists": false,
		"file_mtime":  nil,
	}
	if st, err := os.Stat(path); err == nil {
		info["file_exists"] = true
		info["file_mtime"] = st.ModTime().Unix()
	}

	sample, err := s.sample(r.Context(), provider.NameTargetingFile, requestIdentity(r))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "info": info, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "info": info, "sample": sample})
}

// handleDiagTargetingFileHash reports the rule file's mtime and content hash
// so an operator can confirm an edit actually landed on disk.
func (s *Server) handleDiagTargetingFileHash(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.TargetingFlagsFile
	st, err := os.Stat(path)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     true,
			"path":   path,
			"exists": false,
		})
		return
	}

	sum, err := sha256File(path)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"path":   path,
		"exists": true,
		"mtime":  st.ModTime().Unix(),
		"sha256": sum,
	})
}
