package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"crosspost/internal/model"
)

const maxUploadBytes = 512 << 20

func (s *Server) handleAuthorizeURL(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "OAuth client not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authUrl": s.google.AuthCodeURL()})
}

func (s *Server) handleExchangeCode(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "OAuth client not configured"})
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "code is required"})
		return
	}

	tok, err := s.google.Exchange(r.Context(), body.Code)
	if err != nil {
		s.log.Errorf("code exchange: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Authentication failed"})
		return
	}

	// Wake up a CLI login flow waiting on this code, if any.
	s.google.DeliverCode(body.Code)

	if err := s.store.Put(r.Context(), model.PlatformYouTube, model.OAuthCredential(tok)); err != nil {
		s.log.Errorf("persist youtube token: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tok})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	platform, ok := s.platformParam(w, r)
	if !ok {
		return
	}
	if err := s.store.Clear(r.Context(), platform); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSessionLogin(w http.ResponseWriter, r *http.Request) {
	platform, ok := s.platformParam(w, r)
	if !ok {
		return
	}

	cred, err := s.login(r.Context(), platform)
	if err != nil {
		s.log.Errorf("%s login: %v", platform, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Login failed", "success": false})
		return
	}

	if err := s.store.Put(r.Context(), platform, cred); err != nil {
		s.log.Errorf("persist %s credential: %v", platform, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cookies": cred.Cookies})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	platform, ok := s.platformParam(w, r)
	if !ok {
		return
	}

	cred, found, err := s.store.Get(r.Context(), platform)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	resp := map[string]any{"platform": platform, "loggedIn": found}
	if found && !platform.UsesOAuth() {
		alive, err := s.probe(platform, cred.Cookies)
		if err != nil {
			s.log.Errorf("%s session probe: %v", platform, err)
		} else {
			resp["sessionAlive"] = alive
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	platform, video, meta, ok := s.publishForm(w, r)
	if !ok {
		return
	}

	driver, registered := s.drivers[platform]
	if !registered {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "no driver for platform"})
		return
	}

	var cred model.Credential
	if platform.UsesOAuth() {
		tok := tokenFromHeader(r.Header.Get("x-auth-tokens"))
		if tok == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Not authenticated", "needsAuth": true})
			return
		}
		cred = model.OAuthCredential(tok)
	} else {
		cookies := cookiesFromHeader(r.Header.Get("x-auth-cookies"))
		if len(cookies) == 0 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Not authenticated", "needsAuth": true})
			return
		}
		cred = model.CookieCredential(cookies)
	}

	remoteID, err := driver.Upload(r.Context(), cred, video, meta)
	if err != nil {
		if errors.Is(err, model.ErrAuthRequired) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Not authenticated", "needsAuth": true})
			return
		}
		s.log.Errorf("%s publish: %v", platform, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Upload failed"})
		return
	}

	resp := map[string]any{"success": true}
	if remoteID != "" {
		resp["remoteId"] = remoteID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePublishBatch runs the store-backed orchestrator across several
// platforms in one request.
func (s *Server) handlePublishBatch(w http.ResponseWriter, r *http.Request) {
	video, meta, ok := s.videoForm(w, r)
	if !ok {
		return
	}

	var targets []model.Platform
	for _, name := range model.ParseTags(r.FormValue("platforms")) {
		p, err := model.ParsePlatform(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		targets = append(targets, p)
	}
	if len(targets) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "platforms is required"})
		return
	}

	results, err := s.pub.Publish(r.Context(), video, meta, targets)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) platformParam(w http.ResponseWriter, r *http.Request) (model.Platform, bool) {
	name := r.URL.Query().Get("platform")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Platform not specified"})
		return "", false
	}
	platform, err := model.ParsePlatform(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return "", false
	}
	return platform, true
}

// publishForm parses the single-platform multipart publish request.
func (s *Server) publishForm(w http.ResponseWriter, r *http.Request) (model.Platform, *model.VideoAsset, model.PublishMetadata, bool) {
	video, meta, ok := s.videoForm(w, r)
	if !ok {
		return "", nil, model.PublishMetadata{}, false
	}
	platform, err := model.ParsePlatform(r.FormValue("platform"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return "", nil, model.PublishMetadata{}, false
	}
	return platform, video, meta, true
}

func (s *Server) videoForm(w http.ResponseWriter, r *http.Request) (*model.VideoAsset, model.PublishMetadata, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart form"})
		return nil, model.PublishMetadata{}, false
	}

	file, header, err := r.FormFile("videoFile")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "videoFile is required"})
		return nil, model.PublishMetadata{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "read upload"})
		return nil, model.PublishMetadata{}, false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = model.MimeForExt(filepath.Ext(header.Filename))
	}

	video, err := model.NewVideoAsset(header.Filename, mimeType, data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return nil, model.PublishMetadata{}, false
	}

	meta := model.PublishMetadata{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        model.ParseTags(r.FormValue("tags")),
	}
	if err := meta.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return nil, model.PublishMetadata{}, false
	}
	return video, meta, true
}

// tokenFromHeader leniently parses the x-auth-tokens JSON header,
// accepting both Go-style "expiry" and googleapis "expiry_date"
// (milliseconds) fields.
func tokenFromHeader(h string) *oauth2.Token {
	if h == "" || !gjson.Valid(h) {
		return nil
	}
	j := gjson.Parse(h)
	tok := &oauth2.Token{
		AccessToken:  j.Get("access_token").String(),
		RefreshToken: j.Get("refresh_token").String(),
		TokenType:    j.Get("token_type").String(),
	}
	if ms := j.Get("expiry_date").Int(); ms > 0 {
		tok.Expiry = time.UnixMilli(ms)
	}
	if v := j.Get("expiry").String(); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			tok.Expiry = t
		}
	}
	if tok.AccessToken == "" {
		return nil
	}
	return tok
}

func cookiesFromHeader(h string) []model.Cookie {
	if h == "" || !gjson.Valid(h) {
		return nil
	}
	var cookies []model.Cookie
	gjson.Parse(h).ForEach(func(_, v gjson.Result) bool {
		c := model.Cookie{
			Name:     v.Get("name").String(),
			Value:    v.Get("value").String(),
			Domain:   v.Get("domain").String(),
			Path:     v.Get("path").String(),
			Expires:  v.Get("expires").Float(),
			HTTPOnly: v.Get("httpOnly").Bool(),
			Secure:   v.Get("secure").Bool(),
		}
		if c.Name != "" {
			cookies = append(cookies, c)
		}
		return true
	})
	return cookies
}
