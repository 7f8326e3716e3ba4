package page

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfill/smartfill/internal/fields"
)

const formHTML = `<!doctype html>
<html>
<head><title> KYC Form </title><style>.x{}</style></head>
<body>
  <h1>Open a Fixed Deposit</h1>
  <form>
    <label for="fn">First  Name</label>
    <input id="fn" name="applicant_fname">
    <label>Mobile <b>Number</b> <input name="contact_no" type="TEL"></label>
    <input type="checkbox" name="terms" id="terms">
    <textarea name="address">old</textarea>
    <select name="tenure">
      <option value="12">1 year</option>
      <option value="24" selected>2 years</option>
    </select>
    <input name="nominee" placeholder="Nominee name">
  </form>
  <label for="missing">Orphan</label>
</body>
</html>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseString(s)
	require.NoError(t, err)
	return doc
}

func TestDocument_Controls(t *testing.T) {
	doc := mustParse(t, formHTML)
	controls := doc.Controls()
	require.Len(t, controls, 6)

	tests := []struct {
		tag, typ, name, label string
	}{
		{"input", "text", "applicant_fname", "First Name"},
		{"input", "tel", "contact_no", "Mobile Number"},
		{"input", "checkbox", "terms", ""},
		{"textarea", "textarea", "address", ""},
		{"select", "select-one", "tenure", ""},
		{"input", "text", "nominee", ""},
	}
	for i, tt := range tests {
		c := controls[i]
		assert.Equal(t, tt.tag, c.Tag(), "control %d", i)
		assert.Equal(t, tt.typ, c.Type(), "control %d", i)
		assert.Equal(t, tt.name, c.Name(), "control %d", i)
		assert.Equal(t, tt.label, c.Label(), "control %d", i)
	}

	assert.Equal(t, fields.Evidence{Name: "applicant_fname", ID: "fn", Label: "First Name"}, controls[0].Evidence())
	assert.Equal(t, "Nominee name", controls[5].Placeholder())
	assert.Equal(t, "KYC Form", doc.Title())
}

func TestLabels_LaterLabelWins(t *testing.T) {
	doc := mustParse(t, `<label for="a">One</label><label for="a">Two</label><input id="a">`)
	assert.Equal(t, "Two", doc.Controls()[0].Label())
}

func TestLabels_ForTakesPrecedenceOverNesting(t *testing.T) {
	doc := mustParse(t, `<label for="b">Outer <input id="a"></label><input id="b">`)
	controls := doc.Controls()
	assert.Equal(t, "", controls[0].Label())
	assert.Equal(t, "Outer", controls[1].Label())
}

func TestControl_SetValue(t *testing.T) {
	ctx := context.Background()
	doc := mustParse(t, formHTML)
	controls := doc.Controls()

	require.NoError(t, controls[0].SetValue(ctx, "Asha"))
	assert.Equal(t, "Asha", controls[0].Value())

	assert.Equal(t, "old", controls[3].Value())
	require.NoError(t, controls[3].SetValue(ctx, "12 MG Road"))
	assert.Equal(t, "12 MG Road", controls[3].Value())

	assert.Equal(t, "24", controls[4].Value())
	require.NoError(t, controls[4].SetValue(ctx, "12"))
	assert.Equal(t, "12", controls[4].Value())

	out := doc.String()
	assert.Contains(t, out, `value="Asha"`)
	assert.Contains(t, out, `12 MG Road</textarea>`)
}

func TestControl_Dispatch(t *testing.T) {
	ctx := context.Background()
	doc := mustParse(t, `<input name="x">`)
	c := doc.Controls()[0]

	require.NoError(t, c.Dispatch(ctx, "input"))
	require.NoError(t, c.Dispatch(ctx, "change"))
	assert.Equal(t, []string{"input", "change"}, c.Events())
}

func TestDocument_VisibleText(t *testing.T) {
	doc := mustParse(t, `<html><head><title>T</title></head><body>
		<p>Fixed   Deposit</p>
		<script>var interest = 1;</script>
		<div hidden>secret</div>
		<div style="display: none">gone</div>
		<span style="VISIBILITY:hidden">ghost</span>
		<div aria-hidden="true">icon</div>
		<template>tpl</template>
		<noscript>enable js</noscript>
		<p>Rate <b>7.5%</b></p>
	</body></html>`)

	assert.Equal(t, " fixed   deposit rate 7.5%", doc.VisibleText(0))
}

func TestDocument_VisibleTextLimit(t *testing.T) {
	doc := mustParse(t, "<p>"+strings.Repeat("a", 50)+"</p><p>tail</p>")

	got := doc.VisibleText(20)
	assert.Len(t, got, 20)
	assert.Equal(t, " "+strings.Repeat("a", 19), got)
}
