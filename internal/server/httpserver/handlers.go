package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/dmitrijs2005/coursesell/internal/server/services"
)

// maxUploadBytes caps avatar uploads.
const maxUploadBytes = 5 << 20

// readUpload returns the multipart file in field, or nil when there is none.
func readUpload(r *http.Request, field string) (*services.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, common.BadRequest("Invalid file upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, common.BadRequest("Invalid file upload")
	}
	if len(data) > maxUploadBytes {
		return nil, common.BadRequest("File too large")
	}

	return &services.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, r, s.logger, common.BadRequest("Invalid form data"))
			return
		}
		in.Name = r.FormValue("name")
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")

		avatar, err := readUpload(r, "file")
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		in.Avatar = avatar
	} else {
		var body struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		in.Name, in.Email, in.Password = body.Name, body.Email, body.Password
	}

	user, session, err := s.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	s.cookies.set(w, session.Token, session.ExpiresAt)
	writeOK(w, http.StatusCreated, "Registered Successfully", envelope{"user": user})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	user, session, err := s.accounts.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	s.cookies.set(w, session.Token, session.ExpiresAt)
	writeOK(w, http.StatusOK, "Welcome back, "+user.Name, envelope{"user": user})
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	s.cookies.clear(w)
	writeOK(w, http.StatusOK, "Logged Out Successfully", nil)
}

// currentUser is only called behind SessionGate.
func currentUser(r *http.Request) *models.User {
	u, _ := UserFromContext(r.Context())
	return u
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "", envelope{"user": currentUser(r)})
}

func (s *HTTPServer) deleteMe(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.DeleteAccount(r.Context(), currentUser(r).ID); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.cookies.clear(w)
	writeOK(w, http.StatusOK, "User Deleted Successfully", nil)
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.accounts.ChangePassword(r.Context(), currentUser(r).ID, body.OldPassword, body.NewPassword); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Password Changed Successfully", nil)
}

func (s *HTTPServer) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	user, err := s.accounts.UpdateProfile(r.Context(), currentUser(r).ID, body.Name, body.Email)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Profile Updated Successfully", envelope{"user": user})
}

func (s *HTTPServer) updateProfilePicture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, s.logger, common.BadRequest("Please upload a file"))
		return
	}

	up, err := readUpload(r, "file")
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if up == nil {
		writeError(w, r, s.logger, common.BadRequest("Please upload a file"))
		return
	}

	user, err := s.accounts.UpdateAvatar(r.Context(), currentUser(r).ID, *up)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Profile Picture Updated Successfully", envelope{"user": user})
}

// forgetPassword answers the same way whether or not the email is known.
func (s *HTTPServer) forgetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	message := "If an account exists for " + body.Email + ", a reset link has been sent"

	_, err := s.accounts.ForgetPassword(r.Context(), body.Email)
	switch {
	case err == nil, errors.Is(err, common.ErrorNotFound):
		writeOK(w, http.StatusOK, message, nil)
	case errors.Is(err, common.ErrEmailDelivery):
		s.logger.Warn(r.Context(), "reset token stored but email failed", "error", err)
		writeOK(w, http.StatusOK, message, envelope{"warning": "The reset email could not be delivered, please try again later"})
	default:
		writeError(w, r, s.logger, err)
	}
}

func (s *HTTPServer) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), chi.URLParam(r, "token"), body.Password); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Password Changed Successfully", nil)
}

type playlistBody struct {
	ID string `json:"id"`
}

func (s *HTTPServer) addToPlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.accounts.AddToPlaylist(r.Context(), currentUser(r).ID, body.ID); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Added to playlist", nil)
}

func (s *HTTPServer) removeFromPlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	// the web client sends the course id as a query parameter
	if body.ID == "" {
		body.ID = r.URL.Query().Get("id")
	}

	if err := s.accounts.RemoveFromPlaylist(r.Context(), currentUser(r).ID, body.ID); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Removed From Playlist", nil)
}

func (s *HTTPServer) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"users": users})
}

func (s *HTTPServer) updateUserRole(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.ToggleRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Role Updated", envelope{"user": user})
}

func (s *HTTPServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "User Deleted Successfully", nil)
}

func (s *HTTPServer) listStats(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.stats.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"stats": list})
}
