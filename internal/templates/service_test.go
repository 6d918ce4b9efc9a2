package templates

import (
	"context"
	"testing"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFill_ReplacesFirstOccurrence(t *testing.T) {
	got := Fill("Hi {{name}}, {{name}} from {{company}}", []string{"name", "company", "extra"}, []string{"Asha"})
	assert.Equal(t, "Hi Asha, {{name}} from ", got)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"name", "day"}, Placeholders("{{name}} on {{ day }} and {{name}}"))
	assert.Nil(t, Placeholders("plain"))
}

func TestCreate_SanitizesAndDetectsVariables(t *testing.T) {
	svc := NewService(store.NewMemory(), "US")
	tpl, err := svc.Create(context.Background(), CreateInput{
		Name:    "Intro",
		Message: `<b>Hi {{name}}</b>, it's <script>alert(1)</script>{{company}} & co`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi {{name}}, it's {{company}} & co", tpl.Message)
	assert.Equal(t, []string{"name", "company"}, tpl.Variables)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Empty", Message: "<p></p>"})
	assert.True(t, apperr.IsValidation(err))
}

func TestRender_BuildsLinks(t *testing.T) {
	svc := NewService(store.NewMemory(), "US")
	ctx := context.Background()
	tpl, err := svc.Create(ctx, CreateInput{Name: "Intro", Message: "Hi {{name}}", Variables: []string{"name"}})
	require.NoError(t, err)

	out, err := svc.Render(ctx, RenderInput{TemplateID: tpl.ID, Phone: "(202) 456-1111", Email: "a@b.com", Values: []string{"Asha Rao"}})
	require.NoError(t, err)
	assert.Equal(t, "Hi Asha Rao", out.Message)
	require.NotNil(t, out.WhatsAppURL)
	assert.Equal(t, "https://wa.me/12024561111?text=Hi%20Asha%20Rao", *out.WhatsAppURL)
	require.NotNil(t, out.GmailURL)
	assert.Equal(t, "https://mail.google.com/mail/?view=cm&to=a%40b.com&su=Message&body=Hi%20Asha%20Rao", *out.GmailURL)

	out, err = svc.Render(ctx, RenderInput{TemplateID: tpl.ID, Values: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "Hi ", out.Message)
	assert.Nil(t, out.WhatsAppURL)
	assert.Nil(t, out.GmailURL)
}

func TestRender_Errors(t *testing.T) {
	svc := NewService(store.NewMemory(), "US")
	_, err := svc.Render(context.Background(), RenderInput{TemplateID: 1})
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.Render(context.Background(), RenderInput{TemplateID: 9, Values: []string{}})
	assert.True(t, apperr.IsNotFound(err))
}
