package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfill/smartfill/internal/autofill"
	"github.com/smartfill/smartfill/internal/config"
	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/learning"
)

const formPage = `<html><body>
<h1>Open a Fixed Deposit</h1>
<p>Interest rate 7.5% p.a.</p>
<p style="display:none">hidden 24%</p>
<form>
  <label for="fn">First Name</label><input id="fn" name="applicant_first">
  <label>Email <input name="contact_email"></label>
  <input type="checkbox" name="email_opt_in">
  <label for="ifsc">IFSC Code</label><input id="ifsc" name="bank_ifsc">
</form>
</body></html>`

func launch(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	s, err := Launch(config.BrowserConfig{Headless: true, Timeout: 10 * time.Second}, nil)
	if err != nil {
		t.Skipf("playwright not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSession_ControlsAndText(t *testing.T) {
	s := launch(t)
	ctx := context.Background()
	require.NoError(t, s.SetContent(ctx, formPage))

	text, err := s.VisibleText(ctx, 60000)
	require.NoError(t, err)
	assert.Contains(t, text, "open a fixed deposit")
	assert.NotContains(t, text, "hidden 24%")

	controls, err := s.Controls(ctx)
	require.NoError(t, err)
	require.Len(t, controls, 4)

	assert.Equal(t, "First Name", controls[0].Evidence().Label)
	assert.Equal(t, "Email", controls[1].Evidence().Label)
	assert.Equal(t, "checkbox", controls[2].Type())
}

func TestSession_Autofill(t *testing.T) {
	s := launch(t)
	ctx := context.Background()
	require.NoError(t, s.SetContent(ctx, formPage))

	controls, err := s.Controls(ctx)
	require.NoError(t, err)

	p := domain.NewProfile()
	p.FirstName = "Asha"
	p.Email = "asha@example.in"
	p.CustomFields["ifsc"] = "SBIN0000001"

	targets := make([]autofill.Control, len(controls))
	for i, c := range controls {
		targets[i] = c
	}
	res, err := autofill.NewFiller(nil).Fill(ctx, p, targets)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Filled)
	assert.Equal(t, "Asha", controls[0].Value())
	assert.Equal(t, "asha@example.in", controls[1].Value())
	assert.Equal(t, "SBIN0000001", controls[3].Value())
}

func TestSession_Capture(t *testing.T) {
	s := launch(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.SetContent(ctx, formPage))

	got := make(chan learning.Observation, 16)
	require.NoError(t, s.Capture(ctx, func(_ context.Context, obs learning.Observation) {
		got <- obs
	}))
	assert.Error(t, s.Capture(ctx, func(context.Context, learning.Observation) {}))

	controls, err := s.Controls(ctx)
	require.NoError(t, err)
	require.NoError(t, controls[3].SetValue(ctx, "HDFC0000002"))
	require.NoError(t, controls[3].Dispatch(ctx, "change"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case obs := <-got:
			if obs.Kind != "change" {
				continue
			}
			assert.Equal(t, "bank_ifsc", obs.Name)
			assert.Equal(t, "IFSC Code", obs.Label)
			assert.Equal(t, "HDFC0000002", obs.CurrentVal)
			return
		case <-deadline:
			t.Fatal("no change observation received")
		}
	}
}

func TestCaptureScript_GuardsPasswords(t *testing.T) {
	guard := strings.Index(captureScript, `=== "password") return;`)
	read := strings.Index(captureScript, "value: el.value")
	require.NotEqual(t, -1, guard)
	require.NotEqual(t, -1, read)
	assert.Less(t, guard, read, "password guard must run before the value is read")
}

func TestSession_CaptureSkipsPasswords(t *testing.T) {
	s := launch(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.SetContent(ctx, `<form>
  <input type="password" name="net_banking_password">
  <input name="nominee_name">
</form>`))

	got := make(chan learning.Observation, 16)
	require.NoError(t, s.Capture(ctx, func(_ context.Context, obs learning.Observation) {
		got <- obs
	}))

	controls, err := s.Controls(ctx)
	require.NoError(t, err)
	require.Len(t, controls, 2)
	require.NoError(t, controls[0].SetValue(ctx, "hunter2"))
	require.NoError(t, controls[0].Dispatch(ctx, "change"))
	require.NoError(t, controls[1].SetValue(ctx, "Ravi"))
	require.NoError(t, controls[1].Dispatch(ctx, "change"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case obs := <-got:
			assert.NotEqual(t, "password", obs.Type())
			assert.NotEqual(t, "hunter2", obs.CurrentVal)
			if obs.Name == "nominee_name" && obs.Kind == "change" {
				return
			}
		case <-deadline:
			t.Fatal("no change observation received")
		}
	}
}

func TestSession_Toast(t *testing.T) {
	s := launch(t)
	ctx := context.Background()
	require.NoError(t, s.SetContent(ctx, formPage))

	require.NoError(t, s.Toast(ctx, "Saved “ifsc”"))
	out, err := s.page.Evaluate(`() => document.getElementById("` + ToastID + `").textContent`)
	require.NoError(t, err)
	assert.Equal(t, "Saved “ifsc”", out)
}
