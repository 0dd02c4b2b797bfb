package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func hrActor() *access.Actor {
	companyID := uuid.New()
	return &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &companyID}
}

func withRoute(req *http.Request, actor *access.Actor, params map[string]string) *http.Request {
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if actor != nil {
		ctx = middleware.WithActor(ctx, actor)
	}
	return req.WithContext(ctx)
}
