package webapp

import (
	"net/http"

	"github.com/phillip-england/maintreq/internal/session"
)

// download hands out the session's pending file once.
func (s *server) download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	dl := s.sessions.TakeDownload(sess.ID)
	if dl == nil {
		s.flashAndRedirect(w, r, sess, session.FlashInfo, "Nenhum arquivo pronto para download.", "/new")
		return
	}
	writeAttachment(w, dl.FileName, dl.ContentType, dl.Data)
}
