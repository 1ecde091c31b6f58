package pages

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"finplan/internal/form"
	"finplan/internal/records"
	"finplan/internal/session"
)

// SettingsStore reads and replaces the fixed configuration.
type SettingsStore interface {
	records.FixedConfigReader
	records.FixedConfigWriter
}

type SettingsState struct {
	Status  Status
	Form    form.FixedConfigForm
	FormErr *form.ValidationError
	Saved   bool
	Err     error
	Busy    bool
}

// SettingsPage backs both the first-run setup wizard and the settings screen;
// StatusSetupIncomplete tells them apart.
type SettingsPage struct {
	store SettingsStore
	user  session.Identity

	mu    sync.Mutex
	state SettingsState
}

func NewSettingsPage(store SettingsStore, user session.Identity) *SettingsPage {
	return &SettingsPage{store: store, user: user, state: SettingsState{Form: form.NewFixedConfigForm()}}
}

func (p *SettingsPage) Load(ctx context.Context) error {
	cfg, err := p.store.FixedConfig(ctx, p.user)

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err == nil:
		p.state = SettingsState{Status: StatusReady, Form: form.FixedConfigFormFrom(cfg)}
	case errors.Is(err, records.ErrSetupIncomplete):
		p.state = SettingsState{Status: StatusSetupIncomplete, Form: form.NewFixedConfigForm()}
		return nil
	default:
		slog.WarnContext(ctx, "Settings load failed", "error", err)
		p.state.Err = err
		if p.state.Status != StatusReady {
			p.state.Status = StatusFailed
		}
	}
	return err
}

func (p *SettingsPage) Dispatch(a form.FixedAction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Form = p.state.Form.Apply(a)
	p.state.Saved = false
}

// Save validates the form and replaces the stored configuration.
func (p *SettingsPage) Save(ctx context.Context) error {
	p.mu.Lock()
	if p.state.Busy {
		p.mu.Unlock()
		return ErrBusy
	}
	cfg, err := p.state.Form.Validate()
	if err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			p.state.FormErr = ve
		}
		p.mu.Unlock()
		return err
	}
	p.state.FormErr = nil
	p.state.Busy = true
	p.mu.Unlock()

	err = p.store.SaveFixedConfig(ctx, p.user, cfg)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Busy = false
	if err != nil {
		slog.WarnContext(ctx, "Settings save failed", "error", err)
		p.state.Err = err
		return err
	}
	slog.InfoContext(ctx, "Fixed configuration saved", "expenses", len(cfg.Expenses))
	p.state.Status = StatusReady
	p.state.Saved = true
	p.state.Err = nil
	return nil
}

func (p *SettingsPage) State() SettingsState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
