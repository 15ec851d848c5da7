package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/showlinehq/showline-backend/api/middleware"
	"github.com/showlinehq/showline-backend/internal/notifications"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	"github.com/showlinehq/showline-backend/pkg/pagination"
)

type testNotificationsService struct {
	notifyFn   func(ctx context.Context, input notifications.NotifyInput) error
	listFn     func(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, string, error)
	markReadFn func(ctx context.Context, userID, notificationID uuid.UUID) error
}

func (s *testNotificationsService) Notify(ctx context.Context, input notifications.NotifyInput) error {
	if s.notifyFn != nil {
		return s.notifyFn(ctx, input)
	}
	return nil
}

func (s *testNotificationsService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, string, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, params)
	}
	return nil, "", nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

func TestListNotificationsPassesPagination(t *testing.T) {
	userID := uuid.New()
	var captured pagination.Params
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, uid uuid.UUID, params pagination.Params) ([]models.Notification, string, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			captured = params
			return []models.Notification{{ID: uuid.New(), UserID: uid, Title: "Order update"}}, "cursor123", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=5&cursor=abc", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))

	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Limit != 5 || captured.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", captured)
	}

	var envelope struct {
		Data struct {
			Notifications []notificationResponse `json:"notifications"`
			NextCursor    string                 `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Notifications) != 1 {
		t.Fatalf("expected 1 notification got %d", len(envelope.Data.Notifications))
	}
	if envelope.Data.NextCursor != "cursor123" {
		t.Fatalf("unexpected cursor %q", envelope.Data.NextCursor)
	}
}

func TestListNotificationsRejectsBadLimit(t *testing.T) {
	svc := &testNotificationsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=zero", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))

	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, uid, nid uuid.UUID) error {
			called = true
			if uid != userID || nid != notificationID {
				t.Fatalf("unexpected args %s %s", uid, nid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("notificationId", notificationID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestMarkNotificationReadRequiresIdentity(t *testing.T) {
	svc := &testNotificationsService{}
	notificationID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("notificationId", notificationID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
