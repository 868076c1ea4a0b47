package admin

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ummitifli/storefront/internal/apperr"
	"github.com/ummitifli/storefront/internal/domain"
)

var (
	// ErrSubmitInFlight is returned when the form is changed, cancelled or
	// submitted again while a submission is pending.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrFormClosed is returned when editing or submitting a closed form.
	ErrFormClosed = errors.New("the product form is closed")
)

// State of the product form.
type State int

const (
	Closed State = iota
	Creating
	Editing
	Submitting
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return "closed"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FormView is a point-in-time copy of the form.
type FormView struct {
	State       State             `json:"state"`
	ProductID   string            `json:"product_id,omitempty"`
	Fields      Fields            `json:"fields"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Form is the create/edit dialog of the admin panel:
//
//	Closed -> Creating | Editing -> Submitting -> Closed
//
// A failed submission returns to Creating or Editing with the fields intact.
type Form struct {
	gw *Gateway

	mu          sync.Mutex
	state       State
	resume      State
	productID   string
	fields      Fields
	message     string
	fieldErrors map[string]string
}

func NewForm(gw *Gateway) *Form {
	return &Form{gw: gw}
}

// OpenCreate shows an empty form with default values.
func (f *Form) OpenCreate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrSubmitInFlight
	}
	f.reset(Creating, "", DefaultFields())
	return nil
}

// OpenEdit shows the form pre-filled from p.
func (f *Form) OpenEdit(p domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrSubmitInFlight
	}
	f.reset(Editing, p.ID, FieldsFromProduct(p))
	return nil
}

// SetFields replaces the field values of an open form.
func (f *Form) SetFields(fields Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Closed:
		return ErrFormClosed
	case Submitting:
		return ErrSubmitInFlight
	}
	f.fields = fields
	return nil
}

// Cancel closes the form and discards the fields.
func (f *Form) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrSubmitInFlight
	}
	f.reset(Closed, "", Fields{})
	return nil
}

// Submit validates the fields, then creates or updates the product. Invalid
// fields return *apperr.ValidationError without calling the store.
func (f *Form) Submit(ctx context.Context) (domain.Product, error) {
	f.mu.Lock()
	switch f.state {
	case Closed:
		f.mu.Unlock()
		return domain.Product{}, ErrFormClosed
	case Submitting:
		f.mu.Unlock()
		return domain.Product{}, ErrSubmitInFlight
	}
	if err := f.fields.Validate(); err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			f.fieldErrors = ve.Fields
		}
		f.mu.Unlock()
		return domain.Product{}, err
	}
	f.resume = f.state
	f.state = Submitting
	f.fieldErrors = nil
	f.message = ""
	id, in := f.productID, f.fields.Input()
	f.mu.Unlock()

	var p domain.Product
	var err error
	if id == "" {
		p, err = f.gw.Create(ctx, in)
	} else {
		p, err = f.gw.Update(ctx, id, domain.PatchFromInput(in))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = f.resume
		var me *apperr.MutationError
		if errors.As(err, &me) {
			f.message = me.Message
		} else {
			f.message = err.Error()
		}
		return domain.Product{}, err
	}
	f.reset(Closed, "", Fields{})
	return p, nil
}

// View returns a copy of the form.
func (f *Form) View() FormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := FormView{
		State:     f.state,
		ProductID: f.productID,
		Fields:    f.fields,
		Message:   f.message,
	}
	if len(f.fieldErrors) > 0 {
		v.FieldErrors = make(map[string]string, len(f.fieldErrors))
		for k, msg := range f.fieldErrors {
			v.FieldErrors[k] = msg
		}
	}
	return v
}

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) reset(state State, id string, fields Fields) {
	f.state = state
	f.productID = id
	f.fields = fields
	f.message = ""
	f.fieldErrors = nil
}

// Forms keeps one form per admin session.
type Forms struct {
	gw    *Gateway
	mu    sync.Mutex
	forms map[string]*Form
}

func NewForms(gw *Gateway) *Forms {
	return &Forms{gw: gw, forms: make(map[string]*Form)}
}

// Get returns the form of owner, creating a closed one on first use.
func (fs *Forms) Get(owner string) *Form {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.forms[owner]
	if !ok {
		f = NewForm(fs.gw)
		fs.forms[owner] = f
	}
	return f
}

// Drop forgets the form of owner unless it is submitting.
func (fs *Forms) Drop(owner string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.forms[owner]; ok && f.State() != Submitting {
		delete(fs.forms, owner)
	}
}
