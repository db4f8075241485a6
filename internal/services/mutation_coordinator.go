package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"brands-console/internal/client"
	"brands-console/internal/editsession"
	"brands-console/internal/events"
	"brands-console/internal/models"
	"brands-console/internal/telemetry"
)

// ErrEmptyPatch is returned by UpdateBrand when the patch carries no field
var ErrEmptyPatch = errors.New("update carries no changed field")

// Mutation operations, as reported in notifications and telemetry
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Success messages published after a mutation
const (
	MessageCreated = "Brand created successfully"
	MessageUpdated = "Brand updated successfully"
	MessageDeleted = "Brand deleted successfully"
)

// BrandsAPI is the remote side of the mutations
type BrandsAPI interface {
	Create(ctx context.Context, req models.CreateBrandRequest) (*models.CreatedBrand, error)
	Update(ctx context.Context, id int64, req models.UpdateBrandRequest) (*models.Brand, error)
	Remove(ctx context.Context, id int64) error
}

// Revalidator refreshes the list that is currently shown
type Revalidator interface {
	Revalidate(ctx context.Context) error
}

// MutationCoordinator runs create, update and delete against the remote API and,
// once the server confirmed a change, revalidates the shown list exactly once.
// Nothing is applied optimistically: on failure the cached list stays as it was.
type MutationCoordinator struct {
	api           BrandsAPI
	list          Revalidator
	session       *editsession.Session
	notifications *events.NotificationQueue
	locks         *EntityLockManager
	telemetry     *telemetry.ClientTelemetry
	logger        *slog.Logger
}

// CoordinatorConfig holds the collaborators of a MutationCoordinator
type CoordinatorConfig struct {
	API           BrandsAPI
	List          Revalidator
	Session       *editsession.Session
	Notifications *events.NotificationQueue
	Locks         *EntityLockManager
	Telemetry     *telemetry.ClientTelemetry
	Logger        *slog.Logger
}

// NewMutationCoordinator creates a coordinator. Session, Notifications and Locks are optional.
func NewMutationCoordinator(cfg CoordinatorConfig) *MutationCoordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Locks == nil {
		cfg.Locks = NewEntityLockManager(cfg.Logger)
	}
	return &MutationCoordinator{
		api:           cfg.API,
		list:          cfg.List,
		session:       cfg.Session,
		notifications: cfg.Notifications,
		locks:         cfg.Locks,
		telemetry:     cfg.Telemetry,
		logger:        cfg.Logger,
	}
}

// CreateBrand creates a brand. The request is sent as typed; the server decides what is valid.
func (m *MutationCoordinator) CreateBrand(ctx context.Context, req models.CreateBrandRequest) (*models.CreatedBrand, error) {
	created, err := m.api.Create(ctx, req)
	if err != nil {
		m.failed(ctx, OperationCreate, 0, err)
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}

	m.logger.Info("Brand created", "brand_name", created.Name, "owner_name", created.OwnerName)
	m.succeeded(ctx, OperationCreate, 0, MessageCreated)
	return created, nil
}

// UpdateBrand sends the fields set in req. An empty patch is rejected without a network call.
func (m *MutationCoordinator) UpdateBrand(ctx context.Context, id int64, req models.UpdateBrandRequest) (*models.Brand, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	var updated *models.Brand
	err := m.locks.WithEntityLock(id, func() error {
		var err error
		updated, err = m.api.Update(ctx, id, req)
		return err
	})
	if err != nil {
		m.failed(ctx, OperationUpdate, id, err)
		return nil, fmt.Errorf("failed to update brand %d: %w", id, err)
	}

	m.logger.Info("Brand updated", "brand_id", id)
	m.completeSession(id)
	m.succeeded(ctx, OperationUpdate, id, MessageUpdated)
	return updated, nil
}

// DeleteBrand removes a brand. Confirmation is the caller's job.
func (m *MutationCoordinator) DeleteBrand(ctx context.Context, id int64) error {
	err := m.locks.WithEntityLock(id, func() error {
		return m.api.Remove(ctx, id)
	})
	if err != nil {
		m.failed(ctx, OperationDelete, id, err)
		return fmt.Errorf("failed to delete brand %d: %w", id, err)
	}

	m.logger.Info("Brand deleted", "brand_id", id)
	m.completeSession(id)
	m.succeeded(ctx, OperationDelete, id, MessageDeleted)
	return nil
}

func (m *MutationCoordinator) completeSession(id int64) {
	if m.session != nil {
		m.session.Complete(id)
	}
}

func (m *MutationCoordinator) succeeded(ctx context.Context, operation string, id int64, message string) {
	m.telemetry.RecordMutation(ctx, operation, "success")
	if m.notifications != nil {
		m.notifications.Success(operation, id, message)
	}

	if m.list == nil {
		return
	}
	// The mutation already happened; a failed refresh only leaves the list stale
	if err := m.list.Revalidate(ctx); err != nil {
		m.logger.Warn("Revalidation after mutation failed",
			"operation", operation,
			"brand_id", id,
			"error", err)
	}
}

func (m *MutationCoordinator) failed(ctx context.Context, operation string, id int64, err error) {
	kind := client.KindUnknownServer
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		kind = apiErr.Kind
	}
	m.telemetry.RecordMutation(ctx, operation, string(kind))

	message := client.UserMessage(err)
	m.logger.Warn("Brand mutation failed",
		"operation", operation,
		"brand_id", id,
		"kind", kind,
		"message", message)
	if m.notifications != nil {
		m.notifications.Failure(operation, id, message)
	}
}
