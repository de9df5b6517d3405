package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCreateTemplate(t *testing.T) {
	fx := newHandlerFixture(t)

	payload := `{"subject":"Offer","title":"Offer","content":"<p>Hi</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates", strings.NewReader(payload))
	rr := httptest.NewRecorder()

	fx.h.CreateTemplate(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	require.Equal(t, "Offer", body["subject"])
	require.NotEmpty(t, body["id"])
}

func TestCreateTemplateMissingSubject(t *testing.T) {
	fx := newHandlerFixture(t)

	payload := `{"subject":"  ","title":"Offer","content":"<p>Hi</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates", strings.NewReader(payload))
	rr := httptest.NewRecorder()

	fx.h.CreateTemplate(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, rr))
}

func TestCreateTemplateBadImageData(t *testing.T) {
	fx := newHandlerFixture(t)

	payload := `{"subject":"Offer","title":"Offer","content":"<img src=\"data:image/png;base64,???\">"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates", strings.NewReader(payload))
	rr := httptest.NewRecorder()

	fx.h.CreateTemplate(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "INVALID_IMAGE_DATA", errorCode(t, rr))
}

func TestUpdateTemplateNotFound(t *testing.T) {
	fx := newHandlerFixture(t)

	payload := `{"subject":"Offer","title":"Offer","content":"<p>Hi</p>"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/templates/x", strings.NewReader(payload))
	req.SetPathValue("id", uuid.New().String())
	rr := httptest.NewRecorder()

	fx.h.UpdateTemplate(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "TEMPLATE_NOT_FOUND", errorCode(t, rr))
}
