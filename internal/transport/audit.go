package transport

import (
	"net/http"

	"produce-market/internal/middleware"
	"produce-market/internal/service"
)

// auditor records successful admin writes in the activity log
type auditor struct {
	activity service.ActivityService
}

func (a auditor) record(r *http.Request, action string, metadata map[string]any) {
	if a.activity == nil {
		return
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return
	}
	a.activity.RecordAdminAction(r.Context(), service.AdminAction{
		UserID:   userID,
		Action:   action,
		Path:     r.URL.Path,
		Metadata: metadata,
	})
}
