package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/i18n"
	"example.com/microblog/internal/middleware"
	"example.com/microblog/internal/models"
)

// --- HTTP Handlers ---

func viewerID(r *http.Request) int64 {
	id, _ := middleware.AccountIDFromContext(r.Context())
	return id
}

// registerHandler handles POST /users.
// Expects JSON body: {"username": "...", "email": "...", "password": "..."}
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, "http/users", &body) {
		return
	}

	acc, err := s.svc.Accounts.Register(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		writeError(w, r, "http/users", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account": acc,
		"message": message(r, i18n.MsgRegistered),
	})
}

// tokenHandler handles POST /tokens and returns a session token.
// Expects JSON body: {"username": "...", "password": "..."}
func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, "http/tokens", &body) {
		return
	}

	token, acc, err := s.svc.Accounts.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, r, "http/tokens", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"account_id": acc.ID,
	})
}

// resetPasswordRequestHandler handles POST /reset_password_request.
// The response is the same whether or not the email is known.
func (s *Server) resetPasswordRequestHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, "http/reset", &body) {
		return
	}

	if err := s.svc.Accounts.RequestPasswordReset(r.Context(), body.Email); err != nil {
		writeError(w, r, "http/reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message(r, i18n.MsgResetSent)})
}

// resetPasswordHandler handles POST /reset_password/{token}.
// Expects JSON body: {"password": "..."}
func (s *Server) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, "http/reset", &body) {
		return
	}

	err := s.svc.Accounts.ResetPassword(r.Context(), r.PathValue("token"), body.Password)
	if errors.Is(err, common.ErrInvalidToken) {
		writeErrorMessage(w, r, "http/reset", http.StatusBadRequest, message(r, i18n.MsgInvalidToken), err)
		return
	}
	if err != nil {
		writeError(w, r, "http/reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message(r, i18n.MsgPasswordReset)})
}

// userHandler handles GET /users/{username}: the profile, follow counts and
// one page of the account's posts (?page=&per_page=).
func (s *Server) userHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := viewerID(r)

	acc, err := s.svc.Accounts.GetByUsername(ctx, r.PathValue("username"))
	if err != nil {
		writeError(w, r, "http/users", err)
		return
	}
	if acc.ID != viewer {
		acc.Email = ""
	}

	followers, err := s.svc.Graph.FollowerCount(ctx, acc.ID)
	if err != nil {
		writeError(w, r, "http/users", err)
		return
	}
	following, err := s.svc.Graph.FollowingCount(ctx, acc.ID)
	if err != nil {
		writeError(w, r, "http/users", err)
		return
	}
	isFollowing, err := s.svc.Graph.IsFollowing(ctx, viewer, acc.ID)
	if err != nil {
		writeError(w, r, "http/users", err)
		return
	}
	page, err := s.svc.Graph.AccountPosts(ctx, acc.ID, queryInt(r, "page", 1), queryInt(r, "per_page", 0))
	if err != nil {
		writeError(w, r, "http/users", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":      acc,
		"followers":    followers,
		"following":    following,
		"is_following": isFollowing,
		"posts":        page,
	})
}

// editProfileHandler handles PUT /users/me.
// Expects JSON body: {"username": "...", "about_me": "..."}
func (s *Server) editProfileHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		AboutMe  string `json:"about_me"`
	}
	if !decodeJSON(w, r, "http/users", &body) {
		return
	}

	acc, err := s.svc.Accounts.UpdateProfile(r.Context(), viewerID(r), body.Username, body.AboutMe)
	if err != nil {
		writeError(w, r, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": acc,
		"message": message(r, i18n.MsgProfileSaved),
	})
}

// followHandler handles POST /follow/{username}.
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	s.changeFollow(w, r, true)
}

// unfollowHandler handles POST /unfollow/{username}.
func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	s.changeFollow(w, r, false)
}

func (s *Server) changeFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	ctx := r.Context()
	username := r.PathValue("username")

	target, err := s.svc.Accounts.GetByUsername(ctx, username)
	if err != nil {
		writeError(w, r, "http/follow", err)
		return
	}

	selfKey, doneKey := i18n.MsgCannotFollowSelf, i18n.MsgFollowing
	op := s.svc.Graph.Follow
	if !follow {
		selfKey, doneKey = i18n.MsgCannotUnfollowSelf, i18n.MsgUnfollowed
		op = s.svc.Graph.Unfollow
	}

	if err := op(ctx, viewerID(r), target.ID); err != nil {
		if errors.Is(err, common.ErrInvalidOperation) {
			writeErrorMessage(w, r, "http/follow", http.StatusBadRequest, message(r, selfKey), err)
			return
		}
		writeError(w, r, "http/follow", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message(r, doneKey, username)})
}

// createPostHandler handles POST /posts.
// Expects JSON body: {"body": "post content", "language": "en"}
func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body     string `json:"body"`
		Language string `json:"language"`
	}
	if !decodeJSON(w, r, "http/posts", &body) {
		return
	}

	ctx := r.Context()
	author, err := s.svc.Accounts.GetByID(ctx, viewerID(r))
	if err != nil {
		writeError(w, r, "http/posts", err)
		return
	}

	post, err := s.svc.Posts.Create(ctx, author.ID, body.Body, body.Language)
	if err != nil {
		writeError(w, r, "http/posts", err)
		return
	}
	post.Author = author.Username

	writeJSON(w, http.StatusCreated, map[string]any{
		"post":    post,
		"message": message(r, i18n.MsgPostLive),
	})
}

// feedHandler handles GET /feed?page=&per_page=.
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Graph.Feed(r.Context(), viewerID(r), queryInt(r, "page", 1), queryInt(r, "per_page", 0))
	if err != nil {
		writeError(w, r, "http/feed", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// exploreHandler handles GET /explore?page=&per_page=.
func (s *Server) exploreHandler(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Graph.GlobalFeed(r.Context(), queryInt(r, "page", 1), queryInt(r, "per_page", 0))
	if err != nil {
		writeError(w, r, "http/explore", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// searchHandler handles GET /search?q=&page=&per_page=.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Posts.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "page", 1), queryInt(r, "per_page", 0))
	if err != nil {
		writeError(w, r, "http/search", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// sendMessageHandler handles POST /messages/{recipient}.
// Expects JSON body: {"body": "..."}
func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body string `json:"body"`
	}
	if !decodeJSON(w, r, "http/messages", &body) {
		return
	}

	ctx := r.Context()
	sender, err := s.svc.Accounts.GetByID(ctx, viewerID(r))
	if err != nil {
		writeError(w, r, "http/messages", err)
		return
	}

	msg, err := s.svc.Messaging.Send(ctx, sender, r.PathValue("recipient"), body.Body)
	if err != nil {
		writeError(w, r, "http/messages", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"direct_message": msg,
		"message":        message(r, i18n.MsgMessageSent),
	})
}

// messagesHandler handles GET /messages?cursor=&limit=. Reading the first
// page marks the inbox read.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acc, err := s.svc.Accounts.GetByID(ctx, viewerID(r))
	if err != nil {
		writeError(w, r, "http/messages", err)
		return
	}

	items, next, err := s.svc.Messaging.Inbox(ctx, acc, r.URL.Query().Get("cursor"), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, "http/messages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"next_cursor": next,
	})
}

// notificationsHandler handles GET /notifications?since=<unix seconds>.
func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	since := time.Unix(0, 0)
	if v := r.URL.Query().Get("since"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			writeErrorMessage(w, r, "http/notifications", http.StatusBadRequest,
				message(r, i18n.MsgBadRequest), errors.New("since must be unix seconds"))
			return
		}
		sec, frac := math.Modf(f)
		since = time.Unix(int64(sec), int64(frac*1e9))
	}

	ns, err := s.svc.Messaging.Notifications(r.Context(), viewerID(r), since)
	if err != nil {
		writeError(w, r, "http/notifications", err)
		return
	}

	type notification struct {
		models.Notification
		Timestamp float64 `json:"timestamp"`
	}
	res := make([]notification, 0, len(ns))
	for _, n := range ns {
		res = append(res, notification{
			Notification: n,
			Timestamp:    float64(n.Timestamp.UnixNano()) / 1e9,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

// exportPostsHandler handles POST /export_posts and returns the queued task.
func (s *Server) exportPostsHandler(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Tasks.LaunchExport(r.Context(), viewerID(r), message(r, i18n.MsgExportStarted))
	if errors.Is(err, common.ErrConflict) {
		writeErrorMessage(w, r, "http/tasks", http.StatusConflict, message(r, i18n.MsgExportRunning), err)
		return
	}
	if err != nil {
		writeError(w, r, "http/tasks", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"task":    task,
		"message": message(r, i18n.MsgExportStarted),
	})
}

// tasksHandler handles GET /tasks: the viewer's tasks still in progress.
func (s *Server) tasksHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Tasks.InProgress(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, r, "http/tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
