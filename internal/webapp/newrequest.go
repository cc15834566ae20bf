package webapp

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/phillip-england/maintreq/internal/media"
	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/session"
	"github.com/phillip-england/maintreq/internal/sheet"
)

// newRequestForm echoes submitted values back after a rejected submission.
type newRequestForm struct {
	Model       string
	Description string
	Code        string
	System      string
	Quantity    string
	CostCenter  string
	Value       string
	Reason      string
}

func formFromRequest(r *http.Request) newRequestForm {
	return newRequestForm{
		Model:       r.PostFormValue("modelo"),
		Description: r.PostFormValue("descricao"),
		Code:        r.PostFormValue("codigo"),
		System:      r.PostFormValue("sistema"),
		Quantity:    r.PostFormValue("quantidade"),
		CostCenter:  r.PostFormValue("centro_custo"),
		Value:       r.PostFormValue("valor"),
		Reason:      r.PostFormValue("motivo"),
	}
}

func (f newRequestForm) input() requests.Input {
	return requests.Input{
		EquipmentModel:       f.Model,
		EquipmentDescription: f.Description,
		EquipmentCode:        f.Code,
		AllocatedSystem:      f.System,
		Quantity:             f.Quantity,
		CostCenter:           f.CostCenter,
		Value:                f.Value,
		Reason:               f.Reason,
	}
}

func (s *server) newRequestRoute(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if s.store == nil {
		s.hardStop(w, sess, http.StatusServiceUnavailable, "Erro ao conectar ao banco de dados: configuração ausente (DB_DSN).")
		return
	}
	if s.uploader == nil {
		s.logger.Warn("new request screen blocked", zap.Error(s.uploaderErr))
		s.hardStop(w, sess, http.StatusServiceUnavailable, "As credenciais de upload de imagens não foram encontradas.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		data := s.basePage(sess, "Nova Solicitação de Manutenção", "new")
		data.Form = newRequestForm{Quantity: "1"}
		s.render(w, http.StatusOK, s.newTmpl, data)
	case http.MethodPost:
		s.submitNewRequest(w, r, sess)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) renderNewRequest(w http.ResponseWriter, sess session.Session, status int, form newRequestForm, fieldErrors map[string]string, flash *session.Flash) {
	data := s.basePage(sess, "Nova Solicitação de Manutenção", "new")
	if flash != nil {
		data.Flashes = append(data.Flashes, *flash)
	}
	data.Form = form
	data.FieldErrors = fieldErrors
	s.render(w, status, s.newTmpl, data)
}

// submitNewRequest validates, uploads the optional photo, inserts, then
// renders the printable form into the session's pending download. Nothing
// is inserted when validation or upload fails.
func (s *server) submitNewRequest(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := r.ParseMultipartForm(media.MaxUploadBytes + (2 << 20)); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.hardStop(w, sess, http.StatusBadRequest, "Não foi possível ler o formulário enviado.")
		return
	}
	if checkCSRF(r, sess) != nil {
		s.rejectCSRF(w, sess)
		return
	}

	form := formFromRequest(r)
	who := requests.Requester{Name: sess.Identity.Name(), SectorRole: sess.Identity.SectorRole()}
	submittedAt := s.now().In(s.cfg.Location)

	req, err := requests.Build(form.input(), who, submittedAt)
	if err != nil {
		var vErr *requests.ValidationError
		if errors.As(err, &vErr) {
			s.renderNewRequest(w, sess, http.StatusUnprocessableEntity, form, vErr.Fields, &session.Flash{
				Kind:    session.FlashWarning,
				Message: "Por favor, preencha todos os campos obrigatórios marcados com *.",
			})
			return
		}
		s.logger.Error("build request", zap.Error(err))
		s.renderNewRequest(w, sess, http.StatusInternalServerError, form, nil, &session.Flash{Kind: session.FlashError, Message: "Não foi possível montar a solicitação."})
		return
	}

	raw, hasPhoto, err := parseOptionalUploadedFile(r, "foto", media.MaxUploadBytes)
	if err != nil {
		s.renderNewRequest(w, sess, http.StatusUnprocessableEntity, form, nil, &session.Flash{Kind: session.FlashError, Message: photoErrorMessage(err)})
		return
	}
	var uploaded bool
	if hasPhoto {
		url, err := s.uploadPhoto(r.Context(), raw)
		if err != nil {
			status := http.StatusBadGateway
			if !errors.Is(err, errUploadFailed) {
				status = http.StatusUnprocessableEntity
			}
			s.renderNewRequest(w, sess, status, form, nil, &session.Flash{Kind: session.FlashError, Message: photoErrorMessage(err)})
			return
		}
		req.PhotoURL = &url
		uploaded = true
	}

	id, err := s.store.InsertRequest(r.Context(), req)
	if err != nil {
		s.logger.Error("insert request failed", zap.Error(err))
		s.renderNewRequest(w, sess, http.StatusBadGateway, form, nil, &session.Flash{
			Kind:    session.FlashError,
			Message: "Falha ao salvar a solicitação. O formulário Excel não foi gerado.",
		})
		return
	}
	req.ID = id
	s.logger.Info("request saved", zap.Int64("id", id), zap.Bool("photo", uploaded))

	workbook, renderErr := sheet.RenderForm(requests.FormFields(req, s.cfg.Location), sheet.FormOptions{Logo: s.logo})
	if renderErr != nil {
		s.logger.Error("render form failed", zap.Int64("id", id), zap.Error(renderErr))
	}
	_, _ = s.sessions.Update(sess.ID, func(cur *session.Session) error {
		if uploaded {
			cur.AddFlash(session.FlashSuccess, "Imagem enviada com sucesso!")
		}
		if renderErr != nil {
			cur.AddFlash(session.FlashWarning, "Solicitação salva, mas não foi possível gerar o formulário Excel.")
			return nil
		}
		cur.Download = &session.Download{
			FileName:    requests.FormFileName(req, s.cfg.Location),
			ContentType: xlsxContentType,
			Data:        workbook,
		}
		cur.AddFlash(session.FlashSuccess, "Solicitação salva no banco de dados e formulário gerado com sucesso!")
		return nil
	})
	http.Redirect(w, r, "/new", http.StatusSeeOther)
}

var errUploadFailed = errors.New("photo upload failed")

func (s *server) uploadPhoto(ctx context.Context, raw []byte) (string, error) {
	photo, err := media.PreparePhoto(raw)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()
	url, err := s.uploader.Upload(ctx, photo)
	if err != nil {
		s.logger.Error("photo upload failed", zap.Error(err))
		return "", errUploadFailed
	}
	return url, nil
}
