package webapp

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/phillip-england/maintreq/internal/session"
)

const manualNavigation = "Não foi possível redirecionar para a página de solicitação. Por favor, selecione 'Nova Solicitação' no menu."

func (s *server) identifyRoute(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.identifyPage(w, r)
	case http.MethodPost:
		s.identifySubmit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) gateMisconfigured(sess session.Session) bool {
	return sess.Identity.State() == session.Locked && s.cfg.MasterPassword == ""
}

func (s *server) identifyPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if s.gateMisconfigured(sess) {
		s.hardStop(w, sess, http.StatusServiceUnavailable, "A senha mestre não foi configurada. Defina MASTER_PASSWORD para liberar o acesso.")
		return
	}
	s.renderIdentify(w, sess, http.StatusOK, "")
}

func (s *server) renderIdentify(w http.ResponseWriter, sess session.Session, status int, errMsg string) {
	id := sess.Identity
	switch id.State() {
	case session.Identified:
		s.render(w, status, s.welcomeTmpl, s.basePage(sess, "Bem-vindo ao Sistema!", "home"))
		return
	case session.Locked:
		data := s.basePage(sess, "Acesso Restrito", "home")
		data.Step = "password"
		data.Error = errMsg
		s.render(w, status, s.identifyTmpl, data)
	case session.NeedsName:
		data := s.basePage(sess, "Identificação do Usuário", "home")
		data.Step = "name"
		data.Error = errMsg
		s.render(w, status, s.identifyTmpl, data)
	default:
		data := s.basePage(sess, "Identificação do Usuário", "home")
		data.Step = "sector_role"
		data.Error = errMsg
		s.render(w, status, s.identifyTmpl, data)
	}
}

// identifySubmit advances the identification flow by one step, chosen by the
// session's current state.
func (s *server) identifySubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil || checkCSRF(r, sess) != nil {
		s.rejectCSRF(w, sess)
		return
	}
	if s.gateMisconfigured(sess) {
		s.hardStop(w, sess, http.StatusServiceUnavailable, "A senha mestre não foi configurada. Defina MASTER_PASSWORD para liberar o acesso.")
		return
	}

	var stepErr error
	updated, err := s.sessions.Update(sess.ID, func(cur *session.Session) error {
		switch cur.Identity.State() {
		case session.Locked:
			stepErr = cur.Identity.Unlock(r.PostFormValue("password"), s.cfg.MasterPassword)
		case session.NeedsName:
			stepErr = cur.Identity.ConfirmName(r.PostFormValue("name"))
		case session.NeedsSectorRole:
			stepErr = cur.Identity.ConfirmSectorRole(r.PostFormValue("sector_role"))
		}
		return stepErr
	})
	if err != nil && stepErr == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	if stepErr != nil {
		msg := "Não foi possível concluir a identificação."
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(stepErr, session.ErrWrongPassword):
			msg = "Senha incorreta. Tente novamente."
			status = http.StatusUnauthorized
		case errors.Is(stepErr, session.ErrNameRequired):
			msg = "O nome é obrigatório."
		case errors.Is(stepErr, session.ErrSectorRoleRequired):
			msg = "O Setor/Cargo é obrigatório."
		}
		s.renderIdentify(w, updated, status, msg)
		return
	}

	if updated.Identity.Identified() {
		s.logger.Info("user identified", zap.String("name", updated.Identity.Name()), zap.String("sector_role", updated.Identity.SectorRole()))
		s.navigate(w, r, updated, "/new")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// navigate redirects to a registered screen. An unknown target leaves the
// user on the welcome screen with manual navigation guidance.
func (s *server) navigate(w http.ResponseWriter, r *http.Request, sess session.Session, target string) {
	if s.screens[target] {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	s.logger.Warn("navigation target unavailable", zap.String("target", target))
	_, _ = s.sessions.Update(sess.ID, func(cur *session.Session) error {
		cur.AddFlash(session.FlashError, manualNavigation)
		return nil
	})
	s.render(w, http.StatusOK, s.welcomeTmpl, s.basePage(sess, "Bem-vindo ao Sistema!", "home"))
}
