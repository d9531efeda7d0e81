package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/minagishl/nostro/internal/content"
	"github.com/minagishl/nostro/internal/types"
)

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /metrics", a.metricsHandler)

	mux.HandleFunc("POST /api/login", a.loginHandler)
	mux.HandleFunc("POST /api/login/generate", a.generateHandler)
	mux.HandleFunc("POST /api/logout", a.logoutHandler)
	mux.HandleFunc("GET /api/session", a.sessionHandler)

	mux.HandleFunc("GET /api/feed", a.feedHandler)
	mux.HandleFunc("GET /api/users/{pubkey}/events", a.userEventsHandler)
	mux.HandleFunc("GET /api/search", a.searchHandler)

	mux.HandleFunc("GET /api/profiles/{pubkey}", a.profileHandler)
	mux.HandleFunc("GET /api/nip05", a.nip05Handler)

	mux.HandleFunc("POST /api/notes", a.publishNoteHandler)
	mux.HandleFunc("POST /api/notes/{id}/reply", a.replyHandler)
	mux.HandleFunc("POST /api/notes/{id}/repost", a.repostHandler)
	mux.HandleFunc("POST /api/notes/{id}/react", a.reactHandler)
	mux.HandleFunc("GET /api/notes/{id}/repost-target", a.repostTargetHandler)

	mux.HandleFunc("GET /api/follows", a.followsHandler)
	mux.HandleFunc("POST /api/follows/{pubkey}", a.followHandler)
	mux.HandleFunc("DELETE /api/follows/{pubkey}", a.unfollowHandler)

	mux.HandleFunc("GET /api/bookmarks", a.bookmarksHandler)
	mux.HandleFunc("POST /api/bookmarks/{id}", a.bookmarkHandler)
	mux.HandleFunc("DELETE /api/bookmarks/{id}", a.unbookmarkHandler)

	mux.HandleFunc("GET /api/notifications", a.notificationsHandler)
	mux.HandleFunc("POST /api/upload", a.uploadHandler)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": a.pool.ActiveConnections(),
	})
}

func (a *app) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key required")
		return
	}

	if err := a.store.LoginWithKey(req.Key); err != nil {
		writeError(w, http.StatusBadRequest, "invalid key")
		return
	}
	if err := a.store.SaveSession(""); err != nil {
		slog.Warn("failed to persist session", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"pubkey": a.store.PublicKey()})
}

func (a *app) generateHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.store.GenerateKeys(); err != nil {
		writeError(w, http.StatusInternalServerError, "key generation failed")
		return
	}
	if err := a.store.SaveSession(""); err != nil {
		slog.Warn("failed to persist session", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"pubkey": a.store.PublicKey()})
}

func (a *app) logoutHandler(w http.ResponseWriter, r *http.Request) {
	a.notifier.Close()
	a.store.Logout()
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (a *app) sessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"pubkey": a.store.PublicKey(),
		"mode":   string(a.store.Mode()),
	})
}

func (a *app) feedHandler(w http.ResponseWriter, r *http.Request) {
	a.store.RefreshFeed(r.Context())
	events := a.store.Events()

	if a.archive != nil {
		if len(events) > 0 {
			if err := a.archive.SaveEvents(r.Context(), events); err != nil {
				slog.Warn("failed to archive feed", "error", err)
			}
		} else {
			// Relays came back empty; serve the last archived feed.
			archived, err := a.archive.RecentEvents(r.Context(), 100)
			if err != nil {
				slog.Warn("failed to read archive", "error", err)
			} else {
				events = archived
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (a *app) userEventsHandler(w http.ResponseWriter, r *http.Request) {
	pubkey := r.PathValue("pubkey")
	a.store.LoadUserEvents(r.Context(), pubkey)
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": a.store.Events()})
}

func (a *app) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}
	a.store.SearchEvents(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": a.store.SearchResults()})
}

func (a *app) profileHandler(w http.ResponseWriter, r *http.Request) {
	pubkey := r.PathValue("pubkey")
	a.store.LoadProfile(r.Context(), pubkey)

	profile, ok := a.store.Profile(pubkey)
	if !ok {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *app) nip05Handler(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier required")
		return
	}

	pubkey, ok := a.store.LookupNIP05(r.Context(), identifier)
	if !ok {
		writeError(w, http.StatusNotFound, "identifier did not resolve")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pubkey": pubkey})
}

func (a *app) publishNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	evt, ok := a.store.PublishNote(r.Context(), req.Content)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":  evt,
		"images": content.ExtractImageURLs(evt.Content),
	})
}

// findEvent locates an event in the feed or search caches by id.
func (a *app) findEvent(id string) (types.Event, bool) {
	for _, evt := range a.store.Events() {
		if evt.ID == id {
			return evt, true
		}
	}
	for _, evt := range a.store.SearchResults() {
		if evt.ID == id {
			return evt, true
		}
	}
	return types.Event{}, false
}

func (a *app) replyHandler(w http.ResponseWriter, r *http.Request) {
	parent, ok := a.findEvent(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "parent note not loaded")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	evt, ok := a.store.ReplyToNote(r.Context(), req.Content, parent)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"event": evt})
}

func (a *app) repostHandler(w http.ResponseWriter, r *http.Request) {
	target, ok := a.findEvent(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "note not loaded")
		return
	}

	evt, ok := a.store.RepostNote(r.Context(), target)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"event": evt})
}

func (a *app) reactHandler(w http.ResponseWriter, r *http.Request) {
	target, ok := a.findEvent(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "note not loaded")
		return
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji required")
		return
	}

	evt, ok := a.store.PublishReaction(r.Context(), req.Emoji, target)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"event": evt})
}

func (a *app) repostTargetHandler(w http.ResponseWriter, r *http.Request) {
	original, ok := a.store.GetRepostedEvent(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not resolved")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"event": original})
}

func (a *app) followsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"follows": a.store.FetchFollowList(r.Context()),
	})
}

func (a *app) followHandler(w http.ResponseWriter, r *http.Request) {
	if !a.store.FollowUser(r.Context(), r.PathValue("pubkey")) {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"follows": a.store.FollowList()})
}

func (a *app) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	if !a.store.UnfollowUser(r.Context(), r.PathValue("pubkey")) {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"follows": a.store.FollowList()})
}

func (a *app) bookmarksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bookmarks": a.store.FetchBookmarkList(r.Context()),
	})
}

func (a *app) bookmarkHandler(w http.ResponseWriter, r *http.Request) {
	if !a.store.BookmarkNote(r.Context(), r.PathValue("id")) {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": a.store.BookmarkList()})
}

func (a *app) unbookmarkHandler(w http.ResponseWriter, r *http.Request) {
	if !a.store.UnbookmarkNote(r.Context(), r.PathValue("id")) {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": a.store.BookmarkList()})
}

func (a *app) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	pubkey := a.store.PublicKey()
	if pubkey == "" {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	notifs := a.notifier.Fetch(r.Context(), pubkey)
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifs})
}

func (a *app) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if a.store.Signer() == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, 32<<20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	url, err := a.uploader.Upload(ctx, a.store.Signer(), header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
