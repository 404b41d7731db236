package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/supplyhub/marketplace-backend/api/middleware"
	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/api/validators"
	"github.com/supplyhub/marketplace-backend/internal/notifications"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

// ListNotifications returns the caller's most recent notifications.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("notifications"))
	}
	return func(w http.ResponseWriter, r *http.Request) {

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unread, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			UserID:     middleware.PrincipalFromContext(r.Context()),
			Limit:      limit,
			UnreadOnly: unread,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("notifications"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		notificationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "notificationId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id"))
			return
		}
		if err := svc.MarkRead(r.Context(), middleware.PrincipalFromContext(r.Context()), notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("notifications"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		updated, err := svc.MarkAllRead(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
