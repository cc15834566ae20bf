package webapp

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/session"
	"github.com/phillip-england/maintreq/internal/sheet"
	"github.com/phillip-england/maintreq/internal/store"
)

// historyCommand is one row action posted from the history screen.
type historyCommand interface {
	isHistoryCommand()
}

type generateForm struct{ id int64 }
type deleteRequest struct{ id int64 }
type confirmDelete struct{ id int64 }
type cancelDelete struct{}

func (generateForm) isHistoryCommand()  {}
func (deleteRequest) isHistoryCommand() {}
func (confirmDelete) isHistoryCommand() {}
func (cancelDelete) isHistoryCommand()  {}

var errUnknownCommand = errors.New("unknown history action")

func parseCommand(form url.Values) (historyCommand, error) {
	action := strings.TrimSpace(form.Get("action"))
	if action == "cancel_delete" {
		return cancelDelete{}, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(form.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad id %q", errUnknownCommand, form.Get("id"))
	}
	switch action {
	case "generate":
		return generateForm{id: id}, nil
	case "delete":
		return deleteRequest{id: id}, nil
	case "confirm_delete":
		return confirmDelete{id: id}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCommand, action)
	}
}

func (s *server) historyActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil || checkCSRF(r, sess) != nil {
		s.rejectCSRF(w, sess)
		return
	}
	if s.store == nil {
		s.hardStop(w, sess, http.StatusServiceUnavailable, "Conexão com o banco de dados falhou.")
		return
	}
	back := historyURL(filterQuery(
		strings.TrimSpace(r.PostFormValue("q")),
		strings.TrimSpace(r.PostFormValue("from")),
		strings.TrimSpace(r.PostFormValue("to")),
	))

	cmd, err := parseCommand(r.PostForm)
	if err != nil {
		s.logger.Warn("rejected history action", zap.Error(err))
		http.Error(w, "invalid action", http.StatusBadRequest)
		return
	}

	switch c := cmd.(type) {
	case generateForm:
		s.runGenerateForm(w, r, sess, c.id, back)
	case deleteRequest:
		_, _ = s.sessions.Update(sess.ID, func(cur *session.Session) error {
			cur.PendingDelete = c.id
			return nil
		})
		http.Redirect(w, r, back, http.StatusSeeOther)
	case confirmDelete:
		s.runConfirmDelete(w, r, sess, c.id, back)
	case cancelDelete:
		_, _ = s.sessions.Update(sess.ID, func(cur *session.Session) error {
			cur.PendingDelete = 0
			return nil
		})
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func (s *server) runGenerateForm(w http.ResponseWriter, r *http.Request, sess session.Session, id int64, back string) {
	rows, err := s.store.FetchAllRequests(r.Context())
	if err != nil {
		s.logger.Error("fetch requests failed", zap.Error(err))
		s.flashAndRedirect(w, r, sess, session.FlashError, "Erro ao buscar dados do banco de dados.", back)
		return
	}
	row, ok := requests.Find(rows, id)
	if !ok {
		s.flashAndRedirect(w, r, sess, session.FlashWarning, "Solicitação não encontrada.", back)
		return
	}
	data, err := sheet.RenderForm(requests.FormFields(row, s.cfg.Location), sheet.FormOptions{Logo: s.logo})
	if err != nil {
		s.logger.Error("render form failed", zap.Int64("id", id), zap.Error(err))
		s.flashAndRedirect(w, r, sess, session.FlashError, "Não foi possível gerar o formulário.", back)
		return
	}
	_, _ = s.sessions.Update(sess.ID, func(cur *session.Session) error {
		cur.Download = &session.Download{
			FileName:    requests.FormFileName(row, s.cfg.Location),
			ContentType: xlsxContentType,
			Data:        data,
		}
		cur.AddFlash(session.FlashSuccess, "Formulário gerado. Use \"Download Pronto\" para baixar.")
		return nil
	})
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// runConfirmDelete deletes only the row the session is currently asking
// about; a stale or mismatched confirmation is reported, not executed.
func (s *server) runConfirmDelete(w http.ResponseWriter, r *http.Request, sess session.Session, id int64, back string) {
	if sess.PendingDelete != id {
		s.flashAndRedirect(w, r, sess, session.FlashWarning, "Confirmação de exclusão expirada. Tente novamente.", back)
		return
	}
	err := s.store.DeleteRequest(r.Context(), id)
	kind, msg := session.FlashSuccess, fmt.Sprintf("Solicitação %d excluída com sucesso.", id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		kind, msg = session.FlashWarning, "A solicitação já havia sido excluída."
	case err != nil:
		s.logger.Error("delete request failed", zap.Int64("id", id), zap.Error(err))
		kind, msg = session.FlashError, "Erro ao excluir a solicitação."
	default:
		s.logger.Info("request deleted", zap.Int64("id", id))
	}
	_, _ = s.sessions.Update(sess.ID, func(cur *session.Session) error {
		cur.PendingDelete = 0
		cur.AddFlash(kind, msg)
		return nil
	})
	http.Redirect(w, r, back, http.StatusSeeOther)
}
