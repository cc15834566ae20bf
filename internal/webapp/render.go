package webapp

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/session"
)

var templateFuncs = template.FuncMap{
	"flashClass": func(kind session.FlashKind) string { return "flash flash-" + string(kind) },
}

type pageData struct {
	Title   string
	Nav     string
	CSRF    string
	Flashes []session.Flash
	HasLogo bool

	// Identity, for the header greeting.
	Identified bool
	FirstName  string
	Name       string
	SectorRole string

	// Identification screen step: password, name or sector_role.
	Step  string
	Error string

	// Hard-stop page.
	HardStop string

	Form        newRequestForm
	FieldErrors map[string]string

	History       historyView
	DownloadReady bool
	DownloadName  string
}

// basePage fills the fields every screen shows.
func (s *server) basePage(sess session.Session, title, nav string) pageData {
	id := sess.Identity
	data := pageData{
		Title:      title,
		Nav:        nav,
		CSRF:       sess.CSRFToken,
		Flashes:    s.sessions.TakeFlashes(sess.ID),
		HasLogo:    len(s.logo) > 0,
		Identified: id.Identified(),
		Name:       id.Name(),
		SectorRole: id.SectorRole(),
	}
	if id.Identified() {
		data.FirstName = requests.FirstName(id.Name())
	}
	if sess.Download != nil {
		data.DownloadReady = true
		data.DownloadName = sess.Download.FileName
	}
	return data
}

func renderHTMLTemplate(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *server) render(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	if err := renderHTMLTemplate(w, status, tmpl, data); err != nil {
		s.logger.Error("template render failed", zap.String("template", tmpl.Name()), zap.Error(err))
		http.Error(w, "template render failed", http.StatusInternalServerError)
	}
}

// hardStop renders a page that only explains why the screen cannot continue.
func (s *server) hardStop(w http.ResponseWriter, sess session.Session, status int, message string) {
	data := s.basePage(sess, "Acesso indisponível", "")
	data.HardStop = message
	s.render(w, status, s.hardStopTmpl, data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
