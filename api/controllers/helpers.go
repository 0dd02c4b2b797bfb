package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/giftdesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

// parseEnumQuery returns nil when key is absent.
func parseEnumQuery[T ~string](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

func parseEnumBody[T ~string](field, raw string, parse func(string) (T, error)) (T, error) {
	value, err := parse(strings.TrimSpace(raw))
	if err != nil {
		var zero T
		return zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
