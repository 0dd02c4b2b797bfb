package vendors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
)

type Service interface {
	CreateVendor(ctx context.Context, actor *access.Actor, input CreateVendorInput) (*VendorDTO, error)
	UpdateVendor(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateVendorInput) (*VendorDTO, error)
	ListVendors(ctx context.Context, actor *access.Actor) ([]VendorDTO, error)
	Assign(ctx context.Context, actor *access.Actor, input AssignInput) (*AssignmentDTO, error)
	UpdateAssignment(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateAssignmentInput) (*AssignmentDTO, error)
	ListAssignments(ctx context.Context, actor *access.Actor, orderID uuid.UUID) ([]AssignmentDTO, error)
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo   *Repository
	DB     *db.Client
	Orders orderLoader
	Outbox outboxEmitter
	Audit  audit.Recorder
	Now    func() time.Time
}

type service struct {
	repo   *Repository
	db     *db.Client
	orders orderLoader
	outbox outboxEmitter
	audit  audit.Recorder
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Audit == nil {
		params.Audit = audit.Nop{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:   params.Repo,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		audit:  params.Audit,
		now:    params.Now,
	}, nil
}

func (s *service) CreateVendor(ctx context.Context, actor *access.Actor, input CreateVendorInput) (*VendorDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Validation("name", "name is required")
	}
	if input.SLADays < 0 {
		return nil, pkgerrors.Validation("sla_days", "sla_days cannot be negative")
	}
	vendor := &models.Vendor{
		Name:         name,
		ContactEmail: lowerPtr(input.ContactEmail),
		Phone:        input.Phone,
		SLADays:      input.SLADays,
		IsActive:     true,
	}
	if err := s.repo.CreateVendor(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "vendor.created",
		ResourceType: "vendor",
		ResourceID:   vendor.ID.String(),
		Details:      map[string]any{"name": name},
	})
	dto := vendorFromModel(vendor)
	return &dto, nil
}

func (s *service) UpdateVendor(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateVendorInput) (*VendorDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindVendor(ctx, id); err != nil {
		return nil, access.LoadError(err, "vendor")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.Validation("name", "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.ContactEmail != nil {
		updates["contact_email"] = lowerPtr(input.ContactEmail)
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.SLADays != nil {
		if *input.SLADays < 0 {
			return nil, pkgerrors.Validation("sla_days", "sla_days cannot be negative")
		}
		updates["sla_days"] = *input.SLADays
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateVendor(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
		}
		s.audit.Record(ctx, actor, audit.Entry{
			Action:       "vendor.updated",
			ResourceType: "vendor",
			ResourceID:   id.String(),
			Details:      updates,
		})
	}
	vendor, err := s.repo.FindVendor(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "vendor")
	}
	dto := vendorFromModel(vendor)
	return &dto, nil
}

// ListVendors shows HR the active vendors only; super admins see all.
func (s *service) ListVendors(ctx context.Context, actor *access.Actor) ([]VendorDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListVendors(ctx, !actor.IsSuperAdmin())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	out := make([]VendorDTO, 0, len(rows))
	for i := range rows {
		out = append(out, vendorFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Assign(ctx context.Context, actor *access.Actor, input AssignInput) (*AssignmentDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	if input.Cost != nil && input.Cost.IsNegative() {
		return nil, pkgerrors.Validation("cost", "cost cannot be negative")
	}
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, access.LoadError(err, "order")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, access.StateConflict("order is cancelled")
	}
	vendor, err := s.repo.FindVendor(ctx, input.VendorID)
	if err != nil {
		return nil, access.LoadError(err, "vendor")
	}
	if !vendor.IsActive {
		return nil, access.StateConflict("vendor is inactive")
	}

	assignment := &models.OrderVendorAssignment{
		ID:         uuid.New(),
		OrderID:    order.ID,
		VendorID:   vendor.ID,
		Status:     enums.AssignmentStatusPending,
		AssignedBy: actor.UserID,
	}
	if input.Cost != nil {
		assignment.Cost = decimal.NewNullDecimal(input.Cost.Round(2))
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor assignment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorAssigned,
			AggregateType: enums.AggregateVendorAssignment,
			AggregateID:   assignment.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.VendorAssignedEvent{
				AssignmentID: assignment.ID,
				OrderID:      order.ID,
				VendorID:     vendor.ID,
				VendorName:   vendor.Name,
				VendorEmail:  vendor.ContactEmail,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign vendor")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "vendor.assigned",
		ResourceType: "order",
		ResourceID:   order.ID.String(),
		CompanyID:    &order.CompanyID,
		Details:      map[string]any{"vendor_id": vendor.ID.String(), "assignment_id": assignment.ID.String()},
	})
	dto := assignmentFromModel(assignment)
	return &dto, nil
}

// UpdateAssignment sets po_sent_at on the first move into shipped or
// delivered and keeps it on every later change.
func (s *service) UpdateAssignment(ctx context.Context, actor *access.Actor, id uuid.UUID, input UpdateAssignmentInput) (*AssignmentDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.Validation("status", "unknown assignment status")
	}
	if input.Status == nil && input.TrackingNumber == nil {
		return nil, pkgerrors.Validation("status", "nothing to update")
	}

	var from, to enums.AssignmentStatus
	var orderID uuid.UUID
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindAssignmentForUpdate(ctx, id)
		if err != nil {
			return access.LoadError(err, "vendor assignment")
		}
		from, to, orderID = current.Status, current.Status, current.OrderID

		updates := map[string]any{"updated_at": s.now().UTC()}
		if input.Status != nil && *input.Status != current.Status {
			if !canMove(current.Status, *input.Status) {
				return access.StateConflict(fmt.Sprintf("assignment cannot move from %s to %s", current.Status, *input.Status))
			}
			to = *input.Status
			updates["status"] = to
			if to.MarksPOSent() && current.POSentAt == nil {
				updates["po_sent_at"] = s.now().UTC()
			}
		}
		if input.TrackingNumber != nil {
			updates["tracking_number"] = strings.TrimSpace(*input.TrackingNumber)
		}
		ok, err := repo.UpdateAssignment(ctx, id, current.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor assignment")
		}
		if !ok {
			return access.StateConflict("assignment changed concurrently")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor assignment")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "vendor.assignment_updated",
		ResourceType: "order",
		ResourceID:   orderID.String(),
		Details:      map[string]any{"assignment_id": id.String(), "from": from.String(), "to": to.String()},
	})
	updated, err := s.repo.FindAssignment(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "vendor assignment")
	}
	dto := assignmentFromModel(updated)
	return &dto, nil
}

func (s *service) ListAssignments(ctx context.Context, actor *access.Actor, orderID uuid.UUID) ([]AssignmentDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, access.LoadError(err, "order")
	}
	if err := access.RequireTenant(actor, order.CompanyID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAssignments(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor assignments")
	}
	out := make([]AssignmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, assignmentFromModel(&rows[i]))
	}
	return out, nil
}

func canMove(from, to enums.AssignmentStatus) bool {
	switch from {
	case enums.AssignmentStatusPending:
		return to != enums.AssignmentStatusPending
	case enums.AssignmentStatusAccepted:
		return to == enums.AssignmentStatusShipped || to == enums.AssignmentStatusDelivered || to == enums.AssignmentStatusCancelled
	case enums.AssignmentStatusShipped:
		return to == enums.AssignmentStatusDelivered
	}
	return false
}

func lowerPtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.ToLower(strings.TrimSpace(*v))
	if out == "" {
		return nil
	}
	return &out
}
