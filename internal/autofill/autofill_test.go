package autofill

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/page"
)

const kycForm = `<form>
  <label for="fn">First name</label><input id="fn">
  <input name="mobile_number">
  <input type="checkbox" name="email_opt_in">
  <input type="radio" name="pan_holder">
  <input name="nominee_name">
  <input name="favourite_colour">
  <input placeholder="PAN">
</form>`

func testProfile() *domain.Profile {
	p := domain.NewProfile()
	p.FirstName = "Asha"
	p.Phone = "9876543210"
	p.Email = "asha@example.in"
	p.PAN = "ABCDE1234F"
	p.CustomFields["nominee_name"] = "Ravi"
	return p
}

func controlsOf(doc *page.Document) []Control {
	out := make([]Control, 0, len(doc.Controls()))
	for _, c := range doc.Controls() {
		out = append(out, c)
	}
	return out
}

func TestFiller_Fill(t *testing.T) {
	doc, err := page.ParseString(kycForm)
	require.NoError(t, err)

	f := NewFiller(zap.NewNop())
	res, err := f.Fill(context.Background(), testProfile(), controlsOf(doc))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Filled)
	assert.Equal(t, []string{domain.KeyFirstName, domain.KeyPhone, "nominee_name", domain.KeyPAN}, res.Keys)
	assert.Equal(t, "Filled 4 field(s).", res.Message())

	controls := doc.Controls()
	assert.Equal(t, "Asha", controls[0].Value())
	assert.Equal(t, "9876543210", controls[1].Value())
	assert.Equal(t, "", controls[2].Value())
	assert.Equal(t, "", controls[3].Value())
	assert.Equal(t, "Ravi", controls[4].Value())
	assert.Equal(t, "", controls[5].Value())
	assert.Equal(t, "ABCDE1234F", controls[6].Value())

	assert.Equal(t, []string{"input", "change"}, controls[0].Events())
	assert.Empty(t, controls[2].Events())
}

func TestFiller_FillIsIdempotent(t *testing.T) {
	doc, err := page.ParseString(kycForm)
	require.NoError(t, err)

	f := NewFiller(nil)
	first, err := f.Fill(context.Background(), testProfile(), controlsOf(doc))
	require.NoError(t, err)
	html1 := doc.String()

	second, err := f.Fill(context.Background(), testProfile(), controlsOf(doc))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, html1, doc.String())
}

func TestFiller_NoMatches(t *testing.T) {
	doc, err := page.ParseString(`<input name="captcha">`)
	require.NoError(t, err)

	res, err := NewFiller(nil).Fill(context.Background(), testProfile(), controlsOf(doc))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Filled)
	assert.Equal(t, "No matching fields found.", res.Message())
}

func TestFiller_EmptyValuesSkipped(t *testing.T) {
	doc, err := page.ParseString(`<input name="lastname">`)
	require.NoError(t, err)

	res, err := NewFiller(nil).Fill(context.Background(), testProfile(), controlsOf(doc))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Filled)
}

type failingControl struct {
	*page.Control
}

func (failingControl) SetValue(context.Context, string) error {
	return errors.New("detached")
}

func TestFiller_ControlErrorsAreSkipped(t *testing.T) {
	doc, err := page.ParseString(`<input name="fname"><input name="phone">`)
	require.NoError(t, err)
	controls := doc.Controls()

	res, err := NewFiller(nil).Fill(context.Background(), testProfile(), []Control{
		failingControl{controls[0]},
		controls[1],
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Filled)
	assert.Equal(t, []string{domain.KeyPhone}, res.Keys)
}

func TestFiller_CanceledContext(t *testing.T) {
	doc, err := page.ParseString(`<input name="fname">`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewFiller(nil).Fill(ctx, testProfile(), controlsOf(doc))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFiller_MatchesJoinedEvidence(t *testing.T) {
	// Neither attribute alone says "date of birth".
	doc, err := page.ParseString(`<form><input name="date of" id="birth"></form>`)
	require.NoError(t, err)

	p := domain.NewProfile()
	p.DOB = "1990-04-12"

	res, err := NewFiller(nil).Fill(context.Background(), p, controlsOf(doc))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Filled)
	assert.Equal(t, []string{domain.KeyDOB}, res.Keys)
	assert.Equal(t, "1990-04-12", doc.Controls()[0].Value())
}

func TestFiller_CanonicalBeatsCustom(t *testing.T) {
	doc, err := page.ParseString(`<form><input name="mobile_phone"></form>`)
	require.NoError(t, err)

	p := domain.NewProfile()
	p.Phone = "9876543210"
	p.CustomFields["mobile_phone"] = "0000000000"

	res, err := NewFiller(nil).Fill(context.Background(), p, controlsOf(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{domain.KeyPhone}, res.Keys)
	assert.Equal(t, "9876543210", doc.Controls()[0].Value())
}
