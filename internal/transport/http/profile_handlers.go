package http

import (
	"errors"
	"io"
	"net/http"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

// maxFormBytes bounds every form body; the largest is the profile form with
// its picture plus the text fields.
const maxFormBytes = app.MaxPictureBytes + 64<<10

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentSession(r)
	profile, err := s.svc.Profiles.Get(r.Context(), sess.Token)
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		p := s.newPage(r, "Profile", domain.Profile{})
		p.Error = domain.UserMessage(err)
		s.render(w, statusFor(err), "profile.html", p)
		return
	}
	s.render(w, http.StatusOK, "profile.html", s.newPage(r, "Profile", profile))
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if bodyExceeded(r) {
			s.bodyTooLarge(w, r)
			return
		}
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	form := domain.Profile{
		Name:           r.PostFormValue("name"),
		Email:          r.PostFormValue("email"),
		Phone:          r.PostFormValue("phone"),
		Username:       r.PostFormValue("username"),
		Bio:            r.PostFormValue("bio"),
		ProfilePicture: r.PostFormValue("profilePicture"),
	}
	if file, _, err := r.FormFile("picture"); err == nil {
		data, rerr := io.ReadAll(io.LimitReader(file, app.MaxPictureBytes+1))
		file.Close()
		if rerr != nil {
			s.internalError(w, rerr)
			return
		}
		url, perr := app.PictureDataURL(data)
		if perr != nil {
			p := s.newPage(r, "Profile", form)
			p.Error = domain.UserMessage(perr)
			s.render(w, statusFor(perr), "profile.html", p)
			return
		}
		if url != "" {
			form.ProfilePicture = url
		}
	}

	sess, _ := currentSession(r)
	updated, err := s.svc.Profiles.Update(r.Context(), sess.Token, form)
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		p := s.newPage(r, "Profile", form)
		p.Error = domain.UserMessage(err)
		s.render(w, statusFor(err), "profile.html", p)
		return
	}
	p := s.newPage(r, "Profile", updated)
	p.Notice = "Profile updated."
	s.render(w, http.StatusOK, "profile.html", p)
}
