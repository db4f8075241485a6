package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"brands-console/internal/client"
	"brands-console/internal/models"
)

// Steps of the creation flow
const (
	StepBrand   = 1
	StepOwner   = 2
	StepSummary = 3
)

// SuccessMessage is shown after a brand was created
const SuccessMessage = "Brand created successfully"

var (
	// ErrCannotContinue is returned when the current step's field is blank
	ErrCannotContinue = errors.New("current step is incomplete")
	// ErrSubmitInProgress is returned when a submit is already running
	ErrSubmitInProgress = errors.New("a submit is already in progress")
	// ErrNotOnSummary is returned when submitting before reaching the summary step
	ErrNotOnSummary = errors.New("the brand can only be submitted from the summary step")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// Report fields by their wire names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Form holds the values typed into the wizard
type Form struct {
	BrandName string `json:"brand_name" validate:"notblank"`
	OwnerName string `json:"owner_name" validate:"notblank"`
}

// Request returns the create payload with surrounding whitespace removed
func (f Form) Request() models.CreateBrandRequest {
	return models.CreateBrandRequest{
		BrandName: strings.TrimSpace(f.BrandName),
		OwnerName: strings.TrimSpace(f.OwnerName),
	}
}

// Validate returns the blank fields keyed by wire name, or nil when the form is complete
func (f Form) Validate() map[string][]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"form": {err.Error()}}
	}
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], "required")
	}
	return out
}

// Creator creates brands on the remote API
type Creator interface {
	CreateBrand(ctx context.Context, req models.CreateBrandRequest) (*models.CreatedBrand, error)
}

// Outcome is the result of the last submit, shown as a notification
type Outcome struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Created *models.CreatedBrand `json:"created,omitempty"`
}

// State is a snapshot of the wizard
type State struct {
	Step        int      `json:"step"`
	Form        Form     `json:"form"`
	CanContinue bool     `json:"canContinue"`
	Submitting  bool     `json:"submitting"`
	LastOutcome *Outcome `json:"lastOutcome,omitempty"`
}

// Wizard drives the three-step creation flow: brand name, owner name, summary
type Wizard struct {
	creator Creator
	logger  *slog.Logger

	mu         sync.Mutex
	step       int
	form       Form
	submitting bool
	last       *Outcome
}

// New creates a wizard on its first step
func New(creator Creator, logger *slog.Logger) *Wizard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wizard{
		creator: creator,
		logger:  logger,
		step:    StepBrand,
	}
}

// SetBrandName updates the brand name field
func (w *Wizard) SetBrandName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form.BrandName = name
}

// SetOwnerName updates the owner name field
func (w *Wizard) SetOwnerName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form.OwnerName = name
}

// CanContinue reports whether the field of the current step is filled in
func (w *Wizard) CanContinue() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canContinueLocked()
}

func (w *Wizard) canContinueLocked() bool {
	switch w.step {
	case StepBrand:
		return validate.Var(w.form.BrandName, "notblank") == nil
	case StepOwner:
		return validate.Var(w.form.OwnerName, "notblank") == nil
	default:
		return validate.Struct(w.form) == nil
	}
}

// Next moves forward one step. It stays put on the summary step.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step >= StepSummary {
		return nil
	}
	if !w.canContinueLocked() {
		return fmt.Errorf("step %d: %w", w.step, ErrCannotContinue)
	}
	w.step++
	return nil
}

// Prev moves back one step. It stays put on the first step.
func (w *Wizard) Prev() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepBrand {
		w.step--
	}
}

// Submit creates the brand from the summary step. On success the form is reset.
// The outcome is also kept for State so a renderer can show it.
func (w *Wizard) Submit(ctx context.Context) (*models.CreatedBrand, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if w.step != StepSummary {
		w.mu.Unlock()
		return nil, ErrNotOnSummary
	}
	if !w.canContinueLocked() {
		w.mu.Unlock()
		return nil, ErrCannotContinue
	}
	w.submitting = true
	w.last = nil
	req := w.form.Request()
	w.mu.Unlock()

	created, err := w.creator.CreateBrand(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if err != nil {
		w.last = &Outcome{Success: false, Message: client.UserMessage(err)}
		w.logger.Info("Brand creation rejected", "brand_name", req.BrandName, "message", w.last.Message)
		return nil, err
	}

	w.last = &Outcome{Success: true, Message: SuccessMessage, Created: created}
	w.step = StepBrand
	w.form = Form{}
	return created, nil
}

// Reset returns to an empty first step and forgets the last outcome
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return
	}
	w.step = StepBrand
	w.form = Form{}
	w.last = nil
}

// State returns a snapshot of the wizard
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Step:        w.step,
		Form:        w.form,
		CanContinue: w.canContinueLocked(),
		Submitting:  w.submitting,
		LastOutcome: w.last,
	}
}
