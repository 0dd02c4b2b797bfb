package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/api/responses"
	"github.com/angelmondragon/giftdesk-backend/api/validators"
	"github.com/angelmondragon/giftdesk-backend/internal/vendors"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

type createVendorRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	SLADays      int     `json:"sla_days" validate:"min=0,max=365"`
}

func CreateVendor(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		var body createVendorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendor, err := svc.CreateVendor(r.Context(), middleware.ActorFromContext(r.Context()), vendors.CreateVendorInput{
			Name:         validators.SanitizeString(body.Name, 200),
			ContactEmail: body.ContactEmail,
			Phone:        body.Phone,
			SLADays:      body.SLADays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, vendor)
	}
}

type updateVendorRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	SLADays      *int    `json:"sla_days,omitempty" validate:"omitempty,min=0,max=365"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func UpdateVendor(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateVendorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendor, err := svc.UpdateVendor(r.Context(), middleware.ActorFromContext(r.Context()), id, vendors.UpdateVendorInput{
			Name:         body.Name,
			ContactEmail: body.ContactEmail,
			Phone:        body.Phone,
			SLADays:      body.SLADays,
			IsActive:     body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

func ListVendors(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		list, err := svc.ListVendors(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type assignVendorRequest struct {
	OrderID  uuid.UUID        `json:"order_id" validate:"required"`
	VendorID uuid.UUID        `json:"vendor_id" validate:"required"`
	Cost     *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,amount"`
}

func AssignVendor(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		var body assignVendorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.Assign(r.Context(), middleware.ActorFromContext(r.Context()), vendors.AssignInput{
			OrderID:  body.OrderID,
			VendorID: body.VendorID,
			Cost:     body.Cost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, assignment)
	}
}

// updateAssignmentRequest has no po_sent_at: it is derived from status.
type updateAssignmentRequest struct {
	Status         *string `json:"status,omitempty"`
	TrackingNumber *string `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
}

func UpdateAssignment(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateAssignmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := vendors.UpdateAssignmentInput{TrackingNumber: body.TrackingNumber}
		if body.Status != nil {
			status, err := parseEnumBody("status", *body.Status, enums.ParseAssignmentStatus)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Status = &status
		}

		assignment, err := svc.UpdateAssignment(r.Context(), middleware.ActorFromContext(r.Context()), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

func ListOrderAssignments(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		orderID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListAssignments(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
