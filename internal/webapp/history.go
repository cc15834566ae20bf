package webapp

import (
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/session"
	"github.com/phillip-england/maintreq/internal/sheet"
)

const historyDateLayout = "02/01/2006 15:04"

type historyRow struct {
	ID         int64
	Date       string
	Name       string
	SectorRole string
	Model      string
	Code       string
	PhotoURL   string
	Pending    bool
}

type historyView struct {
	Rows  []historyRow
	Total int
	Shown int

	Search string
	From   string
	To     string
	MinDay string
	MaxDay string

	// Query carries the active filters into action forms and the export link.
	Query         string
	PendingDelete int64
	FetchError    string
	Empty         bool
}

// historyFilter reads q/from/to and falls back to the full date span of rows
// when a bound is missing or unparsable.
func (s *server) historyFilter(values url.Values, rows []requests.Request) (requests.Filter, historyView) {
	lo, hi := requests.DateBounds(rows, s.cfg.Location)
	f := requests.Filter{Search: strings.TrimSpace(values.Get("q")), From: lo, To: hi}
	if d, ok := requests.ParseDate(values.Get("from")); ok {
		f.From = d
	}
	if d, ok := requests.ParseDate(values.Get("to")); ok {
		f.To = d
	}
	view := historyView{Search: f.Search, MinDay: dateString(lo), MaxDay: dateString(hi), From: dateString(f.From), To: dateString(f.To)}
	view.Query = filterQuery(view.Search, view.From, view.To)
	return f, view
}

func dateString(d requests.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func filterQuery(search, from, to string) string {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return q.Encode()
}

func (s *server) historyPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if s.store == nil {
		s.hardStop(w, sess, http.StatusServiceUnavailable, "Conexão com o banco de dados falhou.")
		return
	}

	data := s.basePage(sess, "Consultar Histórico de Solicitações", "history")
	rows, err := s.store.FetchAllRequests(r.Context())
	if err != nil {
		s.logger.Error("fetch requests failed", zap.Error(err))
		data.History.FetchError = "Erro ao buscar dados do banco de dados."
		s.render(w, http.StatusBadGateway, s.historyTmpl, data)
		return
	}

	filter, view := s.historyFilter(r.URL.Query(), rows)
	filtered := filter.Apply(rows, s.cfg.Location)
	view.Total = len(rows)
	view.Shown = len(filtered)
	view.Empty = len(rows) == 0
	view.PendingDelete = sess.PendingDelete
	view.Rows = make([]historyRow, 0, len(filtered))
	for _, row := range filtered {
		hr := historyRow{
			ID:         row.ID,
			Date:       row.SubmittedAt.In(s.cfg.Location).Format(historyDateLayout),
			Name:       row.RequesterName,
			SectorRole: row.RequesterSectorRole,
			Model:      row.EquipmentModel,
			Code:       row.EquipmentCode,
			Pending:    row.ID == sess.PendingDelete,
		}
		if row.PhotoURL != nil {
			hr.PhotoURL = *row.PhotoURL
		}
		view.Rows = append(view.Rows, hr)
	}
	data.History = view
	s.render(w, http.StatusOK, s.historyTmpl, data)
}

// historyExport streams the filtered listing as a tabular spreadsheet.
func (s *server) historyExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if s.store == nil {
		s.hardStop(w, sess, http.StatusServiceUnavailable, "Conexão com o banco de dados falhou.")
		return
	}
	rows, err := s.store.FetchAllRequests(r.Context())
	if err != nil {
		s.logger.Error("fetch requests for export failed", zap.Error(err))
		s.flashAndRedirect(w, r, sess, session.FlashError, "Erro ao buscar dados do banco de dados.", "/history")
		return
	}
	filter, view := s.historyFilter(r.URL.Query(), rows)
	filtered := filter.Apply(rows, s.cfg.Location)

	data, err := sheet.RenderReport(filtered, s.cfg.Location)
	if err != nil {
		s.logger.Error("render report failed", zap.Error(err))
		s.flashAndRedirect(w, r, sess, session.FlashError, "Não foi possível gerar o relatório.", historyURL(view.Query))
		return
	}
	name := requests.ReportFileName(s.now().In(s.cfg.Location))
	writeAttachment(w, name, xlsxContentType, data)
	s.logger.Info("report exported", zap.Int("rows", len(filtered)))
}

func historyURL(query string) string {
	if query == "" {
		return "/history"
	}
	return "/history?" + query
}

func (s *server) flashAndRedirect(w http.ResponseWriter, r *http.Request, sess session.Session, kind session.FlashKind, msg, target string) {
	_, _ = s.sessions.Update(sess.ID, func(cur *session.Session) error {
		cur.AddFlash(kind, msg)
		return nil
	})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func writeAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
